package httpapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kbars/internal/datasource"
	"kbars/internal/domain"
	"kbars/internal/util"
)

// ---------------------------------------------------------------------------
// Fixture stores
// ---------------------------------------------------------------------------

type stubBars map[string][]domain.DayBar

func (s stubBars) GetBars(orderBookID string) ([]domain.DayBar, bool) {
	bars, ok := s[orderBookID]
	return bars, ok
}

func (s stubBars) GetDateRange(orderBookID string) (start, end int64, ok bool) {
	bars, ok := s[orderBookID]
	if !ok || len(bars) == 0 {
		return 0, 0, false
	}
	return bars[0].Date, bars[len(bars)-1].Date, true
}

type stubInstruments []domain.Instrument

func (s stubInstruments) AllInstruments() []domain.Instrument { return s }

type stubDividends map[string][]domain.Dividend

func (s stubDividends) GetDividends(orderBookID string) []domain.Dividend {
	return s[orderBookID]
}

type stubCalendar []time.Time

func (s stubCalendar) TradingCalendar() []time.Time { return s }

type stubYield struct {
	points []domain.YieldCurvePoint
	rate   float64
}

func (s stubYield) GetYieldCurve(start, end time.Time, tenor string) []domain.YieldCurvePoint {
	return s.points
}

func (s stubYield) GetRiskFreeRate(start, end time.Time) float64 { return s.rate }

type stubDateSet map[string]map[int64]bool

func (s stubDateSet) Contains(orderBookID string, dates []time.Time) []bool {
	flags := make([]bool, len(dates))
	for i, d := range dates {
		flags[i] = s[orderBookID][util.DateToInt(d)]
	}
	return flags
}

func flatBars(dates []int64, closes, volumes []float64) []domain.DayBar {
	bars := make([]domain.DayBar, len(dates))
	for i, d := range dates {
		c, v := closes[i], volumes[i]
		bars[i] = domain.DayBar{
			Date: d, Open: c, High: c, Low: c, Close: c,
			Volume: v, TotalTurnover: c * v,
		}
	}
	return bars
}

func calendarOf(dates ...int64) stubCalendar {
	days := make([]time.Time, len(dates))
	for i, d := range dates {
		days[i] = util.IntToDate(d)
	}
	return days
}

// testDeps builds a small bundle: a stock with one suspension day, the
// benchmark index, two futures and a fund without bars.
func testDeps() datasource.Deps {
	stockBars := flatBars(
		[]int64{20240102, 20240103, 20240104, 20240105},
		[]float64{10, 11, 12, 13},
		[]float64{100, 0, 100, 100})
	indexBars := flatBars(
		[]int64{20240102, 20240103, 20240104, 20240105},
		[]float64{2960, 2965, 2950, 2975},
		[]float64{1e9, 1e9, 1e9, 1e9})
	futureBars := flatBars(
		[]int64{20240102, 20240103},
		[]float64{3500, 3520},
		[]float64{1000, 1200})
	futureBars[0].Settlement = 3508
	futureBars[1].Settlement = 3522
	futureBars[0].PrevSettlement = 3490
	futureBars[1].PrevSettlement = 3508
	futureBars[0].OpenInterest = 52000
	futureBars[1].OpenInterest = 52300

	return datasource.Deps{
		Stocks:  stubBars{"000001.XSHE": stockBars},
		Indexes: stubBars{"000001.XSHG": indexBars},
		Futures: stubBars{"IF2406": futureBars},
		Funds:   stubBars{},
		Instruments: stubInstruments{
			{OrderBookID: "000001.XSHE", Symbol: "PAB", Type: domain.TypeCS, Exchange: "XSHE", RoundLot: 100},
			{OrderBookID: "000001.XSHG", Symbol: "SHCOMP", Type: domain.TypeINDX, Exchange: "XSHG", RoundLot: 1},
			{OrderBookID: "510050.XSHG", Symbol: "50ETF", Type: domain.TypeETF, Exchange: "XSHG", RoundLot: 100},
			{OrderBookID: "IF2406", Symbol: "IF2406", Type: domain.TypeFuture, Exchange: "CFFEX", RoundLot: 1, MarginRate: 0.12, UnderlyingSymbol: "IF"},
			{OrderBookID: "XX2409", Symbol: "XX2409", Type: domain.TypeFuture, Exchange: "CFFEX", RoundLot: 1, UnderlyingSymbol: "XX"},
		},
		Dividends: stubDividends{"000001.XSHE": {{
			OrderBookID: "000001.XSHE", AnnouncementDate: 20230410,
			BookClosureDate: 20230613, ExDividendDate: 20230614,
			PayableDate: 20230614, CashBeforeTax: 2.85, RoundLot: 10,
		}}},
		OriginalDividends: stubDividends{"000001.XSHE": {{
			OrderBookID: "000001.XSHE", AnnouncementDate: 20230410,
			BookClosureDate: 20230613, ExDividendDate: 20230614,
			PayableDate: 20230614, CashBeforeTax: 2.80, RoundLot: 10,
		}}},
		TradingDates: calendarOf(20240102, 20240103, 20240104, 20240105),
		YieldCurve: stubYield{
			points: []domain.YieldCurvePoint{{Date: 20240102, Tenor: "1Y", Rate: 0.021}},
			rate:   0.021,
		},
		SuspendedDays: stubDateSet{"000001.XSHE": {20240103: true}},
		STStockDays:   stubDateSet{},
	}
}

func newServerWith(t *testing.T, deps datasource.Deps) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(NewServer(datasource.New(deps, logger), logger).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T) *httptest.Server {
	return newServerWith(t, testDeps())
}

func getJSON(t *testing.T, srv *httptest.Server, path string, wantStatus int, out any) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("GET %s: status = %d, want %d (body %q)", path, resp.StatusCode, wantStatus, body)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("GET %s: decode response: %v", path, err)
		}
	}
}

func wantColumn(t *testing.T, resp BarsResponse, field domain.Field, want []float64) {
	t.Helper()
	got, ok := resp.Columns[field]
	if !ok {
		t.Fatalf("column %q missing from response", field)
	}
	if len(got) != len(want) {
		t.Fatalf("column %q length = %d, want %d", field, len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("column %q[%d] = %v, want %v", field, i, got[i], want[i])
		}
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t)

	var resp HealthResponse
	getJSON(t, srv, "/health", http.StatusOK, &resp)
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
	if resp.Instruments != 5 {
		t.Errorf("instruments = %d, want 5", resp.Instruments)
	}
}

func TestHandleInstruments(t *testing.T) {
	srv := newTestServer(t)

	var all InstrumentsResponse
	getJSON(t, srv, "/api/v1/instruments", http.StatusOK, &all)
	if all.Count != 5 || len(all.Instruments) != 5 {
		t.Fatalf("count = %d (len %d), want 5", all.Count, len(all.Instruments))
	}

	var stocks InstrumentsResponse
	getJSON(t, srv, "/api/v1/instruments?type=CS", http.StatusOK, &stocks)
	if stocks.Count != 1 {
		t.Fatalf("CS count = %d, want 1", stocks.Count)
	}
	if stocks.Instruments[0].OrderBookID != "000001.XSHE" {
		t.Errorf("CS instrument = %q, want 000001.XSHE", stocks.Instruments[0].OrderBookID)
	}

	var none InstrumentsResponse
	getJSON(t, srv, "/api/v1/instruments?type=Bond", http.StatusOK, &none)
	if none.Count != 0 {
		t.Errorf("Bond count = %d, want 0", none.Count)
	}
}

func TestHandleInstrument(t *testing.T) {
	srv := newTestServer(t)

	var inst domain.Instrument
	getJSON(t, srv, "/api/v1/instruments/IF2406", http.StatusOK, &inst)
	if inst.Type != domain.TypeFuture || inst.UnderlyingSymbol != "IF" {
		t.Errorf("instrument = %+v, want IF future", inst)
	}

	getJSON(t, srv, "/api/v1/instruments/999999.XSHE", http.StatusNotFound, nil)
}

func TestHandleBarsDefaults(t *testing.T) {
	srv := newTestServer(t)

	var resp BarsResponse
	getJSON(t, srv, "/api/v1/bars/000001.XSHE", http.StatusOK, &resp)
	if resp.Frequency != "1d" {
		t.Errorf("frequency = %q, want 1d", resp.Frequency)
	}
	// The suspension day is dropped by default.
	if resp.Count != 3 {
		t.Fatalf("count = %d, want 3", resp.Count)
	}
	if len(resp.Fields) != 7 {
		t.Errorf("fields = %v, want the 7 core fields", resp.Fields)
	}
	wantColumn(t, resp, domain.FieldDatetime, []float64{20240102, 20240104, 20240105})
	wantColumn(t, resp, domain.FieldClose, []float64{10, 12, 13})
}

func TestHandleBarsParams(t *testing.T) {
	srv := newTestServer(t)

	var resp BarsResponse
	getJSON(t, srv, "/api/v1/bars/000001.XSHE?skip_suspended=false&count=3&date=2024-01-05", http.StatusOK, &resp)
	wantColumn(t, resp, domain.FieldClose, []float64{11, 12, 13})

	getJSON(t, srv, "/api/v1/bars/000001.XSHE?skip_suspended=false&include_now=false&count=2&date=2024-01-05", http.StatusOK, &resp)
	wantColumn(t, resp, domain.FieldClose, []float64{11, 12})

	// Decoding into a reused struct keeps stale Columns map entries; start
	// from a zero value so the column count reflects this response alone.
	resp = BarsResponse{}
	getJSON(t, srv, "/api/v1/bars/000001.XSHE?fields=close,volume&count=2", http.StatusOK, &resp)
	if len(resp.Fields) != 2 || resp.Fields[0] != domain.FieldClose || resp.Fields[1] != domain.FieldVolume {
		t.Fatalf("fields = %v, want [close volume]", resp.Fields)
	}
	if len(resp.Columns) != 2 {
		t.Errorf("columns = %d entries, want 2", len(resp.Columns))
	}
	wantColumn(t, resp, domain.FieldClose, []float64{12, 13})
}

func TestHandleBarsWeekly(t *testing.T) {
	srv := newTestServer(t)

	var resp BarsResponse
	getJSON(t, srv, "/api/v1/bars/000001.XSHE?freq=1w&date=2024-01-05", http.StatusOK, &resp)
	if resp.Count != 1 {
		t.Fatalf("count = %d, want 1", resp.Count)
	}
	wantColumn(t, resp, domain.FieldDatetime, []float64{20240105})
	wantColumn(t, resp, domain.FieldOpen, []float64{10})
	wantColumn(t, resp, domain.FieldClose, []float64{13})
	wantColumn(t, resp, domain.FieldVolume, []float64{300})
}

func TestHandleBarsFutureFields(t *testing.T) {
	srv := newTestServer(t)

	var resp BarsResponse
	getJSON(t, srv, "/api/v1/bars/IF2406?count=2", http.StatusOK, &resp)
	if len(resp.Fields) != 10 {
		t.Fatalf("fields = %v, want the 10 futures fields", resp.Fields)
	}
	wantColumn(t, resp, domain.FieldSettlement, []float64{3508, 3522})

	// Futures extras exist on daily bars only.
	getJSON(t, srv, "/api/v1/bars/IF2406?freq=1w&fields=settlement", http.StatusBadRequest, nil)
}

func TestHandleBarsAbsentSeries(t *testing.T) {
	srv := newTestServer(t)

	var resp BarsResponse
	getJSON(t, srv, "/api/v1/bars/510050.XSHG", http.StatusOK, &resp)
	if resp.Count != 0 {
		t.Fatalf("count = %d, want 0", resp.Count)
	}
	wantColumn(t, resp, domain.FieldClose, []float64{})
}

func TestHandleBarsErrors(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{
		"/api/v1/bars/999999.XSHE",
	} {
		getJSON(t, srv, path, http.StatusNotFound, nil)
	}
	for _, path := range []string{
		"/api/v1/bars/000001.XSHE?freq=5m",
		"/api/v1/bars/000001.XSHE?count=abc",
		"/api/v1/bars/000001.XSHE?count=-1",
		"/api/v1/bars/000001.XSHE?fields=nonexistent",
		"/api/v1/bars/000001.XSHE?date=Jan-1",
		"/api/v1/bars/000001.XSHE?skip_suspended=maybe",
	} {
		getJSON(t, srv, path, http.StatusBadRequest, nil)
	}
}

func TestHandleBar(t *testing.T) {
	srv := newTestServer(t)

	var resp BarResponse
	getJSON(t, srv, "/api/v1/bar/000001.XSHE?date=2024-01-04", http.StatusOK, &resp)
	if resp.Bar == nil || resp.Bar.Close != 12 {
		t.Fatalf("bar = %+v, want close 12", resp.Bar)
	}

	// Non-trading day: present key, null bar.
	getJSON(t, srv, "/api/v1/bar/000001.XSHE?date=2024-01-06", http.StatusOK, &resp)
	if resp.Bar != nil {
		t.Errorf("bar = %+v, want null", resp.Bar)
	}

	// Default date is the last calendar day.
	getJSON(t, srv, "/api/v1/bar/000001.XSHE", http.StatusOK, &resp)
	if resp.Date != "2024-01-05" || resp.Bar == nil || resp.Bar.Close != 13 {
		t.Errorf("default-date bar = %q %+v, want 2024-01-05 close 13", resp.Date, resp.Bar)
	}
}

func TestHandleSettlePrice(t *testing.T) {
	srv := newTestServer(t)

	var resp SettlePriceResponse
	getJSON(t, srv, "/api/v1/settle-price/IF2406?date=2024-01-02", http.StatusOK, &resp)
	if resp.SettlePrice == nil || *resp.SettlePrice != 3508 {
		t.Fatalf("settle price = %v, want 3508", resp.SettlePrice)
	}

	getJSON(t, srv, "/api/v1/settle-price/IF2406?date=2024-01-06", http.StatusOK, &resp)
	if resp.SettlePrice != nil {
		t.Errorf("settle price = %v, want null", *resp.SettlePrice)
	}
}

func TestHandleMargin(t *testing.T) {
	srv := newTestServer(t)

	var info domain.MarginInfo
	getJSON(t, srv, "/api/v1/margin/IF2406", http.StatusOK, &info)
	if info.MarginType != domain.MarginByMoney {
		t.Errorf("margin type = %q, want BY_MONEY", info.MarginType)
	}
	if info.LongMarginRatio != 0.12 || info.ShortMarginRatio != 0.12 {
		t.Errorf("margin ratios = %v/%v, want 0.12", info.LongMarginRatio, info.ShortMarginRatio)
	}

	getJSON(t, srv, "/api/v1/margin/999999.XSHE", http.StatusNotFound, nil)
}

func TestHandleCommission(t *testing.T) {
	srv := newTestServer(t)

	var info domain.CommissionInfo
	getJSON(t, srv, "/api/v1/commission/IF2406", http.StatusOK, &info)
	if info.CommissionType != domain.CommissionByMoney {
		t.Errorf("commission type = %q, want BY_MONEY", info.CommissionType)
	}
	if info.OpenCommissionRatio != 0.000023 {
		t.Errorf("open ratio = %v, want 0.000023", info.OpenCommissionRatio)
	}

	// Product missing from the reference table.
	getJSON(t, srv, "/api/v1/commission/XX2409", http.StatusNotFound, nil)
}

func TestHandleRange(t *testing.T) {
	srv := newTestServer(t)

	var resp RangeResponse
	getJSON(t, srv, "/api/v1/range", http.StatusOK, &resp)
	if resp.Start == nil || resp.End == nil {
		t.Fatalf("range = %+v, want both bounds", resp)
	}
	if *resp.Start != "2024-01-02" || *resp.End != "2024-01-05" {
		t.Errorf("range = %s..%s, want 2024-01-02..2024-01-05", *resp.Start, *resp.End)
	}

	getJSON(t, srv, "/api/v1/range?freq=1w", http.StatusBadRequest, nil)
}

func TestHandleRangeEmptyBundle(t *testing.T) {
	deps := testDeps()
	deps.Indexes = stubBars{}
	srv := newServerWith(t, deps)

	var resp RangeResponse
	getJSON(t, srv, "/api/v1/range", http.StatusOK, &resp)
	if resp.Start != nil || resp.End != nil {
		t.Errorf("range = %+v, want null bounds", resp)
	}
}

func TestHandleDividends(t *testing.T) {
	srv := newTestServer(t)

	var resp DividendsResponse
	getJSON(t, srv, "/api/v1/dividends/000001.XSHE", http.StatusOK, &resp)
	if resp.Variant != "adjusted" || resp.Count != 1 {
		t.Fatalf("response = %+v, want 1 adjusted dividend", resp)
	}
	if resp.Dividends[0].CashBeforeTax != 2.85 {
		t.Errorf("cash = %v, want 2.85", resp.Dividends[0].CashBeforeTax)
	}

	getJSON(t, srv, "/api/v1/dividends/000001.XSHE?variant=original", http.StatusOK, &resp)
	if resp.Dividends[0].CashBeforeTax != 2.80 {
		t.Errorf("original cash = %v, want 2.80", resp.Dividends[0].CashBeforeTax)
	}

	getJSON(t, srv, "/api/v1/dividends/IF2406", http.StatusOK, &resp)
	if resp.Count != 0 {
		t.Errorf("future dividends = %d, want 0", resp.Count)
	}

	getJSON(t, srv, "/api/v1/dividends/000001.XSHE?variant=raw", http.StatusBadRequest, nil)
}

func TestHandleSuspendedAndST(t *testing.T) {
	srv := newTestServer(t)

	var resp DateFlagsResponse
	getJSON(t, srv, "/api/v1/suspended/000001.XSHE?dates=2024-01-02,2024-01-03", http.StatusOK, &resp)
	if len(resp.Flags) != 2 || resp.Flags[0] || !resp.Flags[1] {
		t.Errorf("suspended flags = %v, want [false true]", resp.Flags)
	}

	getJSON(t, srv, "/api/v1/st/000001.XSHE?dates=2024-01-02,2024-01-03", http.StatusOK, &resp)
	if len(resp.Flags) != 2 || resp.Flags[0] || resp.Flags[1] {
		t.Errorf("st flags = %v, want [false false]", resp.Flags)
	}

	getJSON(t, srv, "/api/v1/suspended/000001.XSHE", http.StatusBadRequest, nil)
	getJSON(t, srv, "/api/v1/suspended/000001.XSHE?dates=bogus", http.StatusBadRequest, nil)
}

func TestHandleCalendar(t *testing.T) {
	srv := newTestServer(t)

	var resp CalendarResponse
	getJSON(t, srv, "/api/v1/calendar", http.StatusOK, &resp)
	if resp.Count != 4 {
		t.Fatalf("count = %d, want 4", resp.Count)
	}

	getJSON(t, srv, "/api/v1/calendar?start=2024-01-03&end=2024-01-04", http.StatusOK, &resp)
	if resp.Count != 2 || resp.Dates[0] != "2024-01-03" || resp.Dates[1] != "2024-01-04" {
		t.Errorf("windowed calendar = %+v, want [2024-01-03 2024-01-04]", resp.Dates)
	}

	getJSON(t, srv, "/api/v1/calendar?start=bogus", http.StatusBadRequest, nil)
}

func TestHandleYieldCurve(t *testing.T) {
	srv := newTestServer(t)

	var resp YieldCurveResponse
	getJSON(t, srv, "/api/v1/yield-curve?start=2024-01-01&end=2024-01-05", http.StatusOK, &resp)
	if resp.Count != 1 || resp.Points[0].Tenor != "1Y" {
		t.Errorf("curve = %+v, want one 1Y point", resp)
	}

	getJSON(t, srv, "/api/v1/yield-curve?start=2024-01-01", http.StatusBadRequest, nil)
}

func TestHandleRiskFreeRate(t *testing.T) {
	srv := newTestServer(t)

	var resp RiskFreeRateResponse
	getJSON(t, srv, "/api/v1/risk-free-rate?start=2024-01-01&end=2024-01-05", http.StatusOK, &resp)
	if resp.Rate == nil || *resp.Rate != 0.021 {
		t.Fatalf("rate = %v, want 0.021", resp.Rate)
	}

	getJSON(t, srv, "/api/v1/risk-free-rate?end=2024-01-05", http.StatusBadRequest, nil)
}

func TestHandleRiskFreeRateNoData(t *testing.T) {
	deps := testDeps()
	deps.YieldCurve = stubYield{rate: math.NaN()}
	srv := newServerWith(t, deps)

	var resp RiskFreeRateResponse
	getJSON(t, srv, "/api/v1/risk-free-rate?start=2024-01-01&end=2024-01-05", http.StatusOK, &resp)
	if resp.Rate != nil {
		t.Errorf("rate = %v, want null", *resp.Rate)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/instruments", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
}
