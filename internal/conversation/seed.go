package conversation

import "github.com/Avicted/farmchat/internal/message"

// OpeningHistory is the canned exchange shown when a chat is opened.
func OpeningHistory() []message.Message {
	return []message.Message{
		{ID: "1", Text: "Hello! How is the maize harvest coming along?", Sender: message.SenderRemote, Kind: message.KindText, TimestampLabel: "09:00 AM", DeliveryState: message.StateRead},
		{ID: "2", Text: "It is going well, thank you. We are expecting a bumper harvest this season.", Sender: message.SenderLocal, Kind: message.KindText, TimestampLabel: "09:05 AM", DeliveryState: message.StateRead},
		{ID: "3", Text: "That is great news! improved seeds really made a difference.", Sender: message.SenderRemote, Kind: message.KindText, TimestampLabel: "09:07 AM", DeliveryState: message.StateRead},
	}
}
