package media

import (
	"context"
	"fmt"

	"github.com/Avicted/farmchat/internal/conversation"
	"github.com/Avicted/farmchat/internal/message"
)

// SendImage asks for photo access, lets the user pick an image and appends
// it to the conversation. sent is false when the user cancelled the picker.
func (c *Controller) SendImage(ctx context.Context, picker ImagePicker, opts PickOptions) (msg message.Message, sent bool, err error) {
	if !c.request(ctx, Photos) {
		c.alert(photosDeniedAlert)
		return message.Message{}, false, fmt.Errorf("send image: %w", ErrPermissionDenied)
	}

	ref, ok, err := picker.Pick(ctx, opts)
	if err != nil {
		c.log.Warn().Err(err).Msg("image picker failed")
		c.alert(imageFailedAlert)
		return message.Message{}, false, fmt.Errorf("send image: %w", err)
	}
	if !ok {
		return message.Message{}, false, nil
	}

	msg, err = c.store.AppendAttachment(message.KindImage, ref, conversation.AttachmentMeta{})
	if err != nil {
		return message.Message{}, false, fmt.Errorf("send image: %w", err)
	}
	return msg, true, nil
}
