package renderer

import (
	"time"

	"github.com/brcarteira/carteira"
)

// brt is the B3 session time zone. Brazil dropped daylight saving in 2019.
var brt = time.FixedZone("BRT", -3*60*60)

// History is the view of a reconciled history used by the report templates.
type History struct {
	Ticker  string         `json:"ticker"`
	Range   string         `json:"range"`
	From    string         `json:"from"`
	To      string         `json:"to"`
	Last    carteira.Money `json:"-"`
	Summary HistorySummary `json:"summary"`
	Rows    []HistoryRow   `json:"rows"`
	// Omitted counts the earliest rows left out of Rows.
	Omitted int `json:"omitted,omitempty"`
}

// HistorySummary holds the cumulative performance of every channel at the last row.
type HistorySummary struct {
	Asset carteira.Percent `json:"asset"`
	Ibov  *float64         `json:"ibov"`
	Ifix  *float64         `json:"ifix"`
	CDI   carteira.Percent `json:"cdi"`
	IPCA  carteira.Percent `json:"ipca"`
	// OverCDI is the asset return in excess of the CDI, Real its return above inflation.
	OverCDI carteira.Percent `json:"overCdi"`
	Real    carteira.Percent `json:"real"`
}

// HistoryRow is one line of the history table.
type HistoryRow struct {
	Date  string           `json:"date"`
	Close carteira.Money   `json:"-"`
	Asset carteira.Percent `json:"asset"`
	Ibov  *float64         `json:"ibov"`
	Ifix  *float64         `json:"ifix"`
	CDI   carteira.Percent `json:"cdi"`
	IPCA  carteira.Percent `json:"ipca"`
}

// NewHistory builds the report view of resp. When tail is positive only the
// last tail rows are kept in the table; the summary always covers the whole series.
func NewHistory(resp *carteira.HistoryResponse, tail int) *History {
	h := &History{
		Ticker: resp.Ticker,
		Range:  resp.Range,
		Rows:   make([]HistoryRow, 0, len(resp.Data)),
	}
	if len(resp.Data) == 0 {
		return h
	}

	layout := time.DateOnly
	if intraday(resp.Data) {
		layout = "2006-01-02 15:04"
	}

	first, last := resp.Data[0], resp.Data[len(resp.Data)-1]
	h.From = first.Date.In(brt).Format(layout)
	h.To = last.Date.In(brt).Format(layout)
	h.Last = carteira.M(last.Close, carteira.BRL)
	h.Summary = HistorySummary{
		Asset:   carteira.Percent(last.AssetPct),
		Ibov:    last.IbovPct,
		Ifix:    last.IfixPct,
		CDI:     carteira.Percent(last.CDIPct),
		IPCA:    carteira.Percent(last.IPCAPct),
		OverCDI: carteira.Percent(carteira.Excess(last.AssetPct, last.CDIPct)),
		Real:    carteira.Percent(carteira.Excess(last.AssetPct, last.IPCAPct)),
	}

	rows := resp.Data
	if tail > 0 && len(rows) > tail {
		h.Omitted = len(rows) - tail
		rows = rows[h.Omitted:]
	}
	for _, pt := range rows {
		h.Rows = append(h.Rows, HistoryRow{
			Date:  pt.Date.In(brt).Format(layout),
			Close: carteira.M(pt.Close, carteira.BRL),
			Asset: carteira.Percent(pt.AssetPct),
			Ibov:  pt.IbovPct,
			Ifix:  pt.IfixPct,
			CDI:   carteira.Percent(pt.CDIPct),
			IPCA:  carteira.Percent(pt.IPCAPct),
		})
	}
	return h
}

// intraday reports whether two rows share a calendar day.
func intraday(data carteira.AlignedSeries) bool {
	for i := 1; i < len(data); i++ {
		a, b := data[i-1].Date.In(brt), data[i].Date.In(brt)
		if a.YearDay() == b.YearDay() && a.Year() == b.Year() {
			return true
		}
	}
	return false
}
