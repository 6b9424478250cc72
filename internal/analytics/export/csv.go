// Package export renders analytics sections as CSV.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/restopro/restopro/internal/analytics"
)

var inr = message.NewPrinter(language.MustParse("en-IN"))

// FormatINR renders an amount in rupees with Indian digit grouping and two
// decimals, e.g. ₹1,23,456.50.
func FormatINR(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return sign + "₹" + inr.Sprint(number.Decimal(v, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

// WriteKPICSV serialises the KPI card with INR formatted amounts.
func WriteKPICSV(w io.Writer, summary analytics.KPISummary, window analytics.Window) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Metric", "Value"}); err != nil {
		return err
	}
	records := [][]string{
		{"Range", string(window.Range)},
		{"From", window.From.Format("2006-01-02")},
		{"To", window.To.AddDate(0, 0, -1).Format("2006-01-02")},
		{"Total Revenue", FormatINR(summary.TotalRevenue)},
		{"Total Orders", strconv.Itoa(summary.TotalOrders)},
		{"Average Order Value", FormatINR(summary.AverageOrderValue)},
		{"Total Profit", FormatINR(summary.TotalProfit)},
		{"Profit Margin", strconv.FormatFloat(summary.ProfitMargin, 'f', 2, 64) + "%"},
		{"Top Item", summary.TopItem},
		{"Best Platform", summary.BestPlatform.Label()},
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteDailyCSV emits the daily sales series.
func WriteDailyCSV(w io.Writer, points []analytics.DailyPoint) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"Date", "Sales", "Orders", "Profit"}); err != nil {
		return err
	}
	for _, p := range points {
		if err := writer.Write([]string{p.Date, FormatINR(p.Sales), strconv.Itoa(p.Orders), FormatINR(p.Profit)}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteTopItemsCSV emits the best sellers.
func WriteTopItemsCSV(w io.Writer, items []analytics.TopItem) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"Item", "Quantity", "Revenue"}); err != nil {
		return err
	}
	for _, item := range items {
		if err := writer.Write([]string{item.Name, strconv.Itoa(item.Quantity), FormatINR(item.Revenue)}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
