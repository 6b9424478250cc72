package sales

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

// WriteOrdersCSV writes one row per order in the given location.
func WriteOrdersCSV(w io.Writer, orders []Order, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{"Order", "Time", "Platform", "Status", "Items", "Subtotal", "Discount", "Total", "Commission", "Net Revenue", "Cost", "Profit"}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, o := range orders {
		items := 0
		for _, l := range o.Lines {
			items += l.Quantity
		}
		st := o.Settlement
		if err := writer.Write([]string{
			o.OrderNumber,
			o.OrderedAt.In(loc).Format("2006-01-02 15:04"),
			o.Platform.Label(),
			string(o.Status),
			strconv.Itoa(items),
			formatAmount(st.Subtotal),
			formatAmount(st.Discount),
			formatAmount(st.Total),
			formatAmount(st.Commission),
			formatAmount(st.NetRevenue),
			formatAmount(st.TotalCost),
			formatAmount(st.Profit),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
