package builtins

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Bharath8080/voiced/pkg/core/types"
	"github.com/Bharath8080/voiced/pkg/gateway/tools/adapters/firecrawl"
)

const travelTimeout = 45 * time.Second

// truncate keeps scraped pages small enough to feed back to the model.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// FlightSearch scrapes Kayak flight listings for a route and date.
type FlightSearch struct {
	client *firecrawl.Client
}

func NewFlightSearch(client *firecrawl.Client) *FlightSearch {
	return &FlightSearch{client: client}
}

func (t *FlightSearch) Name() string { return "search_flights" }

func (t *FlightSearch) Description() string {
	return "Search for flights between two airports on a date. Airports are IATA codes like SFO or JFK, dates are YYYY-MM-DD."
}

func (t *FlightSearch) Schema() *types.JSONSchema {
	return &types.JSONSchema{
		Type: "object",
		Properties: map[string]*types.JSONSchema{
			"origin":         {Type: "string", Description: "Origin airport IATA code."},
			"destination":    {Type: "string", Description: "Destination airport IATA code."},
			"departure_date": {Type: "string", Description: "Departure date, YYYY-MM-DD."},
			"return_date":    {Type: "string", Description: "Return date for round trips, YYYY-MM-DD."},
		},
		Required: []string{"origin", "destination", "departure_date"},
	}
}

func (t *FlightSearch) Timeout() time.Duration { return travelTimeout }

func (t *FlightSearch) Execute(ctx context.Context, args map[string]any) (string, error) {
	origin, _ := args["origin"].(string)
	destination, _ := args["destination"].(string)
	depart, _ := args["departure_date"].(string)
	ret, _ := args["return_date"].(string)

	target := fmt.Sprintf("https://www.kayak.com/flights/%s-%s/%s",
		strings.ToUpper(strings.TrimSpace(origin)),
		strings.ToUpper(strings.TrimSpace(destination)),
		depart)
	if ret != "" {
		target += "/" + ret
	}

	page, err := t.client.Scrape(ctx, target)
	if err != nil {
		return "", err
	}
	return truncate(page.Content, 4000), nil
}

// HotelSearch scrapes Kayak hotel listings for a location and stay.
type HotelSearch struct {
	client *firecrawl.Client
}

func NewHotelSearch(client *firecrawl.Client) *HotelSearch {
	return &HotelSearch{client: client}
}

func (t *HotelSearch) Name() string { return "search_hotels" }

func (t *HotelSearch) Description() string {
	return "Search for hotels in a location for a date range. Dates are YYYY-MM-DD."
}

func (t *HotelSearch) Schema() *types.JSONSchema {
	return &types.JSONSchema{
		Type: "object",
		Properties: map[string]*types.JSONSchema{
			"location":  {Type: "string", Description: "City or area, e.g. \"Paris\"."},
			"check_in":  {Type: "string", Description: "Check-in date, YYYY-MM-DD."},
			"check_out": {Type: "string", Description: "Check-out date, YYYY-MM-DD."},
			"guests":    {Type: "integer", Description: "Number of guests. Defaults to 2."},
		},
		Required: []string{"location", "check_in", "check_out"},
	}
}

func (t *HotelSearch) Timeout() time.Duration { return travelTimeout }

func (t *HotelSearch) Execute(ctx context.Context, args map[string]any) (string, error) {
	location, _ := args["location"].(string)
	checkIn, _ := args["check_in"].(string)
	checkOut, _ := args["check_out"].(string)
	guests := 2
	if g, ok := args["guests"].(float64); ok && g > 0 {
		guests = int(g)
	}

	target := fmt.Sprintf("https://www.kayak.com/hotels/%s/%s/%s/%dadults",
		url.PathEscape(strings.TrimSpace(location)), checkIn, checkOut, guests)

	page, err := t.client.Scrape(ctx, target)
	if err != nil {
		return "", err
	}
	return truncate(page.Content, 4000), nil
}
