package main

import (
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/vaidashi/garment-order-tracker/internal/models"
)

const timeLayout = "2006-01-02 15:04:05"

func renderOrders(w io.Writer, orders []*models.Order) error {
	table := tablewriter.NewWriter(w)
	table.Header("Order", "Buyer", "Manager", "Product", "Qty", "Total", "Payment", "Status", "Created")

	for _, o := range orders {
		if err := table.Append([]string{
			o.ID,
			o.BuyerID,
			o.ManagerID,
			o.ProductID,
			strconv.Itoa(o.Quantity),
			o.TotalAmount.StringFixed(2),
			string(o.PaymentMethod),
			string(o.Status),
			o.CreatedAt.UTC().Format(timeLayout),
		}); err != nil {
			return err
		}
	}

	return table.Render()
}

func renderTracking(w io.Writer, events []*models.TrackingEvent) error {
	table := tablewriter.NewWriter(w)
	table.Header("#", "Stage", "At", "Location", "Note")

	for i, e := range events {
		if err := table.Append([]string{
			strconv.Itoa(i + 1),
			string(e.Stage),
			e.CreatedAt.UTC().Format(time.RFC3339Nano),
			deref(e.Location),
			deref(e.Note),
		}); err != nil {
			return err
		}
	}

	return table.Render()
}

func renderOutboxCounts(w io.Writer, counts map[models.OutboxStatus]int) error {
	statuses := make([]string, 0, len(counts))
	for status := range counts {
		statuses = append(statuses, string(status))
	}
	sort.Strings(statuses)

	table := tablewriter.NewWriter(w)
	table.Header("Status", "Messages")

	for _, status := range statuses {
		if err := table.Append([]string{status, strconv.Itoa(counts[models.OutboxStatus(status)])}); err != nil {
			return err
		}
	}

	return table.Render()
}

func renderDeadLetters(w io.Writer, messages []*models.DeadLetterMessage) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Event", "Aggregate", "Status", "Retries", "Reason", "Created")

	for _, m := range messages {
		if err := table.Append([]string{
			strconv.FormatInt(m.ID, 10),
			m.EventType,
			m.AggregateID,
			string(m.Status),
			strconv.Itoa(m.RetryCount),
			m.FailureReason,
			m.CreatedAt.UTC().Format(timeLayout),
		}); err != nil {
			return err
		}
	}

	return table.Render()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
