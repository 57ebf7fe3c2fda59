//go:build protogen

package booking

import (
	"context"
	"time"

	bookingv1 "github.com/telecare-labs/telesched/protos/gen/booking/v1"
	"github.com/telecare-labs/telesched/libs/grpcx"
	"google.golang.org/protobuf/types/known/timestamppb"
)

type grpcProvider struct {
	client bookingv1.BookingServiceClient
}

func NewProvider(addr string) (Provider, error) {
	if addr == "" {
		return nil, nil
	}
	conn, err := grpcx.Dial(context.Background(), addr, grpcx.DialOptions{Timeout: 3 * time.Second})
	if err != nil {
		return nil, err
	}
	return &grpcProvider{client: bookingv1.NewBookingServiceClient(conn)}, nil
}

func (p *grpcProvider) BookedStarts(ctx context.Context, practitionerID string, from, to time.Time) ([]time.Time, error) {
	resp, err := p.client.ListBookedStarts(ctx, &bookingv1.ListBookedStartsRequest{
		PractitionerId: practitionerID,
		From:           timestamppb.New(from),
		To:             timestamppb.New(to),
	})
	if err != nil {
		return nil, err
	}
	starts := make([]time.Time, 0, len(resp.GetStarts()))
	for _, ts := range resp.GetStarts() {
		if ts != nil {
			starts = append(starts, ts.AsTime())
		}
	}
	return starts, nil
}
