package cart

import (
	"context"
	"testing"

	"github.com/ariefcatur/go-commerce-ledger/internal/apperr"
	"github.com/ariefcatur/go-commerce-ledger/internal/auth"
	"github.com/ariefcatur/go-commerce-ledger/internal/inventory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	lines   []Line
	cleared bool
}

func (s *stubStore) LockCart(context.Context, int64) ([]Line, error) { return s.lines, nil }
func (s *stubStore) ClearCart(context.Context, int64) error {
	s.cleared = true
	return nil
}

func TestTake(t *testing.T) {
	st := &stubStore{lines: []Line{
		{ProductID: 1, Quantity: 2, Price: decimal.NewFromInt(90), LivePrice: decimal.NewFromInt(100)},
		{ProductID: 2, Quantity: 1, Price: decimal.NewFromInt(50), LivePrice: decimal.NewFromInt(50)},
	}}

	snap, err := Take(context.Background(), st, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(9), snap.UserID)
	assert.Len(t, snap.Lines, 2)
	assert.True(t, snap.Total.Equal(decimal.NewFromInt(250)), "got %s", snap.Total)
	assert.False(t, st.cleared)
}

func TestTake_Empty(t *testing.T) {
	_, err := Take(context.Background(), &stubStore{}, 9)
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

type memRepo struct {
	products map[int64]Product
	lines    map[int64]Line
	nextID   int64
}

func newMemRepo() *memRepo {
	return &memRepo{
		products: map[int64]Product{
			1: {ID: 1, SellerID: 5, Name: "kettle", Price: decimal.NewFromInt(100), Stock: 3},
			2: {ID: 2, SellerID: 5, Name: "mug", Price: decimal.NewFromInt(10), Stock: 0},
		},
		lines: map[int64]Line{},
	}
}

func (m *memRepo) Product(_ context.Context, id int64) (Product, error) {
	p, ok := m.products[id]
	if !ok {
		return Product{}, inventory.ErrProductNotFound
	}
	return p, nil
}

func (m *memRepo) InsertLine(_ context.Context, l Line) (Line, error) {
	m.nextID++
	l.ID = m.nextID
	m.lines[l.ID] = l
	return l, nil
}

func (m *memRepo) GetLine(_ context.Context, id int64) (Line, error) {
	l, ok := m.lines[id]
	if !ok {
		return Line{}, ErrLineNotFound
	}
	return l, nil
}

func (m *memRepo) SetQuantity(_ context.Context, id int64, qty int) error {
	l := m.lines[id]
	l.Quantity = qty
	m.lines[id] = l
	return nil
}

func (m *memRepo) DeleteLine(_ context.Context, id int64) error {
	delete(m.lines, id)
	return nil
}

func (m *memRepo) Lines(_ context.Context, userID int64) ([]Line, error) {
	var out []Line
	for _, l := range m.lines {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

func TestService_Add(t *testing.T) {
	buyer := auth.Actor{UserID: 7, Role: auth.RoleUser}

	tests := []struct {
		name    string
		actor   auth.Actor
		in      AddInput
		wantErr error
		kind    apperr.Kind
	}{
		{name: "default quantity", actor: buyer, in: AddInput{ProductID: 1}},
		{name: "exact stock", actor: buyer, in: AddInput{ProductID: 1, Quantity: 3}},
		{name: "over stock", actor: buyer, in: AddInput{ProductID: 1, Quantity: 4}, wantErr: inventory.ErrInsufficientStock, kind: apperr.KindConflict},
		{name: "out of stock", actor: buyer, in: AddInput{ProductID: 2, Quantity: 1}, wantErr: inventory.ErrInsufficientStock, kind: apperr.KindConflict},
		{name: "unknown product", actor: buyer, in: AddInput{ProductID: 99, Quantity: 1}, wantErr: inventory.ErrProductNotFound, kind: apperr.KindNotFound},
		{name: "negative quantity", actor: buyer, in: AddInput{ProductID: 1, Quantity: -1}, wantErr: inventory.ErrInvalidQuantity, kind: apperr.KindValidation},
		{name: "admin denied", actor: auth.Actor{UserID: 1, Role: auth.RoleAdmin}, in: AddInput{ProductID: 1}, kind: apperr.KindAuthorization},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemRepo()
			svc := NewService(repo, nil)

			line, err := svc.Add(context.Background(), tt.actor, tt.in)

			if tt.kind != apperr.KindSystem {
				require.Error(t, err)
				assert.Equal(t, tt.kind, apperr.KindOf(err))
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				assert.Empty(t, repo.lines)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.actor.UserID, line.UserID)
			assert.Equal(t, int64(5), line.SellerID)
			assert.True(t, line.Price.Equal(decimal.NewFromInt(100)))
			assert.Len(t, repo.lines, 1)
		})
	}
}

func TestService_UpdateAndRemove(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	svc := NewService(repo, nil)
	owner := auth.Actor{UserID: 7, Role: auth.RoleUser}
	other := auth.Actor{UserID: 8, Role: auth.RoleUser}

	line, err := svc.Add(ctx, owner, AddInput{ProductID: 1, Quantity: 1})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.UpdateQuantity(ctx, owner, line.ID, 0), inventory.ErrInvalidQuantity)
	assert.ErrorIs(t, svc.UpdateQuantity(ctx, other, line.ID, 2), ErrLineNotFound)
	require.NoError(t, svc.UpdateQuantity(ctx, owner, line.ID, 2))
	assert.Equal(t, 2, repo.lines[line.ID].Quantity)

	_, err = svc.Remove(ctx, other, line.ID)
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))

	removed, err := svc.Remove(ctx, owner, line.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed.ProductID)

	lines, err := svc.List(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, lines)
}
