package alpaca

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/crossover/internal/collector"
	"github.com/newthinker/crossover/internal/core"
)

type fakeClient struct {
	bars []marketdata.Bar
	err  error

	gotSymbol string
	gotReq    marketdata.GetBarsRequest
}

func (f *fakeClient) GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error) {
	f.gotSymbol = symbol
	f.gotReq = req
	return f.bars, f.err
}

func TestAlpaca_ImplementsBarProvider(t *testing.T) {
	var _ collector.BarProvider = (*Alpaca)(nil)
}

func TestParseTimeFrame(t *testing.T) {
	tests := []struct {
		input string
		tf    marketdata.TimeFrame
		span  time.Duration
	}{
		{"5Min", marketdata.NewTimeFrame(5, marketdata.Min), 5 * time.Minute},
		{"1Hour", marketdata.OneHour, time.Hour},
		{"1Day", marketdata.OneDay, 24 * time.Hour},
		{"2Week", marketdata.NewTimeFrame(2, marketdata.Week), 14 * 24 * time.Hour},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			tf, span, err := parseTimeFrame(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.tf, tf)
			assert.Equal(t, tc.span, span)
		})
	}
}

func TestParseTimeFrame_Invalid(t *testing.T) {
	for _, input := range []string{"", "5m", "0Min", "Min", "1Year"} {
		_, _, err := parseTimeFrame(input)
		assert.Truef(t, errors.Is(err, core.ErrConfigInvalid), "input %q", input)
	}
}

func TestAlpaca_FetchBars(t *testing.T) {
	now := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	client := &fakeClient{}
	for i := 0; i < 5; i++ {
		client.bars = append(client.bars, marketdata.Bar{
			Timestamp: now.Add(time.Duration(i-5) * 5 * time.Minute),
			Close:     100 + float64(i),
			Volume:    1000,
		})
	}

	a := newWithClient(client, marketdata.IEX)
	a.now = func() time.Time { return now }

	series, err := a.FetchBars(context.Background(), "aapl", "5Min", 3)
	require.NoError(t, err)

	assert.Equal(t, "AAPL", client.gotSymbol)
	assert.Equal(t, marketdata.IEX, client.gotReq.Feed)
	assert.True(t, client.gotReq.End.Equal(now))
	// three 5 minute bars is shorter than the minimum lookback
	assert.True(t, client.gotReq.Start.Equal(now.Add(-minLookback)))

	require.Len(t, series, 3)
	assert.Equal(t, "102", series[0].Close.String())
	assert.Equal(t, "104", series[2].Close.String())
	assert.Equal(t, "aapl", series[0].Symbol)
	assert.Equal(t, "5Min", series[0].Interval)
	assert.True(t, series.IsAscending())
}

func TestAlpaca_FetchBars_LongLookback(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	client := &fakeClient{}
	a := newWithClient(client, marketdata.SIP)
	a.now = func() time.Time { return now }

	series, err := a.FetchBars(context.Background(), "AAPL", "1Day", 100)
	require.NoError(t, err)
	assert.Empty(t, series)
	assert.True(t, client.gotReq.Start.Equal(now.Add(-400*24*time.Hour)))
}

func TestAlpaca_FetchBars_Errors(t *testing.T) {
	client := &fakeClient{err: errors.New("connection refused")}
	a := newWithClient(client, marketdata.IEX)

	_, err := a.FetchBars(context.Background(), "AAPL", "1Day", 10)
	assert.ErrorContains(t, err, "connection refused")

	_, err = a.FetchBars(context.Background(), "AAPL", "1Day", 0)
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.FetchBars(ctx, "AAPL", "1Day", 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseFeed(t *testing.T) {
	assert.Equal(t, marketdata.SIP, parseFeed("SIP"))
	assert.Equal(t, marketdata.IEX, parseFeed("iex"))
	assert.Equal(t, marketdata.IEX, parseFeed(""))
}
