package outbox

import (
	"context"
	"net/http"

	"github.com/pithecene-io/meshclient/transport"
	"github.com/pithecene-io/meshclient/types"
)

// Track returns the delivery status of a message previously sent from
// mailboxID. No handshake is performed.
func (s *Sender) Track(ctx context.Context, mailboxID, messageID string) (types.Outcome[types.TrackingInfo], error) {
	if err := types.RequireNonEmpty("mailboxID", mailboxID); err != nil {
		return types.Outcome[types.TrackingInfo]{}, err
	}
	if err := types.RequireNonEmpty("messageID", messageID); err != nil {
		return types.Outcome[types.TrackingInfo]{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoints.Track(mailboxID, messageID), nil)
	if err != nil {
		return types.Outcome[types.TrackingInfo]{}, err
	}
	req.Header.Set(transport.HeaderAccept, transport.MediaTypeV2)

	resp, err := s.transport.Send(req, mailboxID)
	return transport.Decode(resp, err, transport.JSON[types.TrackingInfo])
}
