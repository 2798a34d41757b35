package availability

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/flohan/hotelrunner/internal/hotelrunner"
	"github.com/flohan/hotelrunner/internal/logging"
	"github.com/flohan/hotelrunner/internal/mocks"
)

func scenarioRooms() []hotelrunner.Record {
	return []hotelrunner.Record{
		{"name": "Standard", "total_count": json.Number("2"), "price": json.Number("150"), "sales_currency": "EUR"},
		{"name": "Deluxe", "total_count": json.Number("1"), "price": json.Number("220"), "sales_currency": "EUR"},
		{"description": "record without a name is skipped"},
	}
}

func scenarioReservations() []hotelrunner.Record {
	return []hotelrunner.Record{
		{"room_type": "Standard", "check_in": "2025-10-01", "check_out": "2025-10-03"},
		{"room_type": "Standard", "check_in": "2025-10-02", "check_out": "2025-10-04"},
		{"room_type_name": "Deluxe", "check_in": "2025-10-01", "check_out": "2025-10-02"},
		{"room_type": "Deluxe", "check_in": "not-a-date", "check_out": "2025-10-02"},
	}
}

func scenarioRequest(t *testing.T, currency string) Request {
	t.Helper()
	in := validInput()
	in.Currency = currency
	req, err := NewRequest(in)
	require.NoError(t, err)
	return req
}

func TestGetAvailabilityScenario(t *testing.T) {
	ctrl := gomock.NewController(t)
	up := mocks.NewMockUpstream(ctrl)

	up.EXPECT().Rooms(gomock.Any()).Return(scenarioRooms(), nil)
	up.EXPECT().Reservations(gomock.Any(), date("2025-09-01"), date("2025-10-05")).Return(scenarioReservations(), nil)
	up.EXPECT().Summary(gomock.Any(), hotelrunner.SummaryQuery{
		CheckIn:  "2025-10-01",
		CheckOut: "2025-10-04",
		Adults:   2,
		Children: 1,
		Currency: "TRY",
	}).Return(hotelrunner.Record{"total": json.Number("1305.5"), "currency": "try"}, nil)
	up.EXPECT().Currencies(gomock.Any()).Return([]any{map[string]any{"code": "TRY"}}, nil)

	svc := NewService(up, "try", logging.Discard())
	resp, err := svc.GetAvailability(context.Background(), scenarioRequest(t, ""))
	require.NoError(t, err)

	require.NotNil(t, resp.Total)
	assert.True(t, resp.Total.Equal(decimal.RequireFromString("1305.5")))
	assert.Equal(t, "TRY", resp.Currency)
	assert.Equal(t, 3, resp.Nights)
	assert.Equal(t, "EUR", resp.PriceCurrency)
	assert.Equal(t, map[string]map[string]int{
		"2025-10-01": {"Standard": 1, "Deluxe": 0},
		"2025-10-02": {"Standard": 0, "Deluxe": 1},
		"2025-10-03": {"Standard": 1, "Deluxe": 1},
	}, resp.Availability)
	assert.Len(t, resp.Raw.Rooms, 3)
	assert.Len(t, resp.Raw.Reservations, 4)
	assert.Len(t, resp.Raw.Currencies, 1)
	assert.NotNil(t, resp.Raw.Summary)
}

func TestGetAvailabilitySummaryDegrades(t *testing.T) {
	tests := []struct {
		name         string
		reqCurrency  string
		wantCurrency string
	}{
		{"falls back to requested currency", "usd", "USD"},
		{"falls back to property base", "", "TRY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			up := mocks.NewMockUpstream(ctrl)
			up.EXPECT().Rooms(gomock.Any()).Return(scenarioRooms(), nil)
			up.EXPECT().Reservations(gomock.Any(), gomock.Any(), gomock.Any()).Return(scenarioReservations(), nil)
			up.EXPECT().Summary(gomock.Any(), gomock.Any()).Return(nil, errors.New("summary timeout"))
			up.EXPECT().Currencies(gomock.Any()).Return(nil, errors.New("currencies down"))

			svc := NewService(up, "TRY", logging.Discard())
			resp, err := svc.GetAvailability(context.Background(), scenarioRequest(t, tt.reqCurrency))
			require.NoError(t, err)

			assert.Nil(t, resp.Total)
			assert.Equal(t, tt.wantCurrency, resp.Currency)
			assert.Nil(t, resp.Raw.Summary)
			assert.Nil(t, resp.Raw.Currencies)
			assert.Equal(t, 1, resp.Availability["2025-10-01"]["Standard"])

			body, err := json.Marshal(resp)
			require.NoError(t, err)
			assert.Contains(t, string(body), `"total":null`)
			assert.Contains(t, string(body), `"summary":null`)
		})
	}
}

func TestGetAvailabilityNonNumericTotal(t *testing.T) {
	ctrl := gomock.NewController(t)
	up := mocks.NewMockUpstream(ctrl)
	up.EXPECT().Rooms(gomock.Any()).Return(scenarioRooms(), nil)
	up.EXPECT().Reservations(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
	up.EXPECT().Summary(gomock.Any(), gomock.Any()).Return(hotelrunner.Record{"total": "n/a", "currency": ""}, nil)
	up.EXPECT().Currencies(gomock.Any()).Return([]any{}, nil)

	svc := NewService(up, "TRY", logging.Discard())
	resp, err := svc.GetAvailability(context.Background(), scenarioRequest(t, "EUR"))
	require.NoError(t, err)
	assert.Nil(t, resp.Total)
	assert.Equal(t, "EUR", resp.Currency)
}

func TestGetAvailabilityFatalFailures(t *testing.T) {
	boom := errors.New("connection refused")
	tests := []struct {
		name   string
		setup  func(up *mocks.MockUpstream)
		wantOp string
	}{
		{
			name: "rooms",
			setup: func(up *mocks.MockUpstream) {
				up.EXPECT().Rooms(gomock.Any()).Return(nil, boom)
				up.EXPECT().Reservations(gomock.Any(), gomock.Any(), gomock.Any()).Return(scenarioReservations(), nil).AnyTimes()
			},
			wantOp: "rooms",
		},
		{
			name: "reservations",
			setup: func(up *mocks.MockUpstream) {
				up.EXPECT().Rooms(gomock.Any()).Return(scenarioRooms(), nil).AnyTimes()
				up.EXPECT().Reservations(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, boom)
			},
			wantOp: "reservations",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			up := mocks.NewMockUpstream(ctrl)
			tt.setup(up)
			up.EXPECT().Summary(gomock.Any(), gomock.Any()).Return(hotelrunner.Record{}, nil).AnyTimes()
			up.EXPECT().Currencies(gomock.Any()).Return([]any{}, nil).AnyTimes()

			svc := NewService(up, "TRY", logging.Discard())
			resp, err := svc.GetAvailability(context.Background(), scenarioRequest(t, ""))
			assert.Nil(t, resp)
			assert.ErrorIs(t, err, ErrUpstreamUnavailable)
			assert.ErrorIs(t, err, boom)

			var uerr *UpstreamError
			require.ErrorAs(t, err, &uerr)
			assert.Equal(t, tt.wantOp, uerr.Op)
		})
	}
}

func TestResponseMarshalJSON(t *testing.T) {
	total := decimal.RequireFromString("434.5")
	resp := Response{
		Total:         &total,
		Currency:      "TRY",
		Nights:        1,
		PriceCurrency: "EUR",
		Availability:  map[string]map[string]int{"2025-10-01": {"Standard": 1}},
		Prices:        map[string]map[string]decimal.Decimal{"2025-10-01": {"Standard": decimal.RequireFromString("150.25")}},
	}

	body, err := json.Marshal(resp)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, 434.5, out["total"])
	assert.Equal(t, "TRY", out["currency"])
	assert.Equal(t, float64(1), out["nights"])
	assert.Equal(t, "EUR", out["price_currency"])
	assert.Equal(t, 150.25, out["prices"].(map[string]any)["2025-10-01"].(map[string]any)["Standard"])
	assert.Contains(t, out, "raw")
}

func TestResponseAsResult(t *testing.T) {
	total := decimal.RequireFromString("43400")
	r := Response{Total: &total, Currency: "TRY", Nights: 10}.AsResult()
	assert.Equal(t, json.Number("43400"), r["total"])
	assert.Equal(t, "TRY", r["currency"])
	assert.Equal(t, 10, r["nights"])

	r = Response{Currency: "TRY", Nights: 2}.AsResult()
	assert.Nil(t, r["total"])
}
