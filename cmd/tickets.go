package cmd

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/pders01/shotvault/internal/history"
	"github.com/spf13/cobra"
)

var ticketsFormat string

var ticketsCmd = &cobra.Command{
	Use:   "tickets",
	Short: "List ticket ids with screenshot counts",
	Long: `List every ticket id attached to a stored screenshot, most used first.

Examples:
  shotvault tickets
  shotvault tickets --format toon`,
	Args: cobra.NoArgs,
	RunE: runTickets,
}

func init() {
	rootCmd.AddCommand(ticketsCmd)

	ticketsCmd.Flags().StringVar(&ticketsFormat, "format", formatText, "Output format: text|json|yaml|toon")
}

type ticketInfo struct {
	Ticket string `json:"ticket" yaml:"ticket"`
	Count  int    `json:"count" yaml:"count"`
	// Latest is the created_at of the newest screenshot for the ticket
	Latest string `json:"latest" yaml:"latest"`
}

func runTickets(cmd *cobra.Command, args []string) error {
	if err := validFormat(ticketsFormat); err != nil {
		return err
	}

	svc, err := openService()
	if err != nil {
		return err
	}
	defer svc.Close()

	items, err := svc.List(context.Background(), history.Query{Limit: math.MaxInt32})
	if err != nil {
		return fmt.Errorf("failed to list screenshots: %w", err)
	}

	byTicket := make(map[string]*ticketInfo)
	for _, it := range items {
		if it.TicketID == nil {
			continue
		}
		info, ok := byTicket[*it.TicketID]
		if !ok {
			info = &ticketInfo{Ticket: *it.TicketID}
			byTicket[*it.TicketID] = info
		}
		info.Count++
		if it.CreatedAt > info.Latest {
			info.Latest = it.CreatedAt
		}
	}

	tickets := make([]ticketInfo, 0, len(byTicket))
	for _, info := range byTicket {
		tickets = append(tickets, *info)
	}
	sort.Slice(tickets, func(i, j int) bool {
		if tickets[i].Count == tickets[j].Count {
			return tickets[i].Ticket < tickets[j].Ticket
		}
		return tickets[i].Count > tickets[j].Count
	})

	if done, err := printStructured(ticketsFormat, tickets); done || err != nil {
		return err
	}

	if len(tickets) == 0 {
		fmt.Println("No tickets found")
		return nil
	}

	fmt.Printf("Found %d ticket(s):\n\n", len(tickets))
	for _, t := range tickets {
		fmt.Printf("  %-30s %3d\n", t.Ticket, t.Count)
	}
	return nil
}
