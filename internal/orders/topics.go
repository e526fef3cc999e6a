package orders

import "strconv"

// TopicOrders carries every order lifecycle event; the event type travels
// in the x-event-type header.
const TopicOrders = "shop.orders"

const (
	HeaderEventType    = "x-event-type"
	HeaderEventVersion = "x-event-version"
)

// Partition key = order id, so the events of one order stay ordered.
func PartitionKey(orderID int64) []byte { return []byte(strconv.FormatInt(orderID, 10)) }
