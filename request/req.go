package request

// MessageReq is a free-text chat message. ReplyTo carries the prompt_id of
// the prompt being answered; it may be empty.
type MessageReq struct {
	Text    string `json:"text"`
	ReplyTo string `json:"reply_to"`
}
