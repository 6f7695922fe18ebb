package builtins

import (
	"github.com/Bharath8080/voiced/pkg/gateway/tools"
	"github.com/Bharath8080/voiced/pkg/gateway/tools/adapters/chroma"
	"github.com/Bharath8080/voiced/pkg/gateway/tools/adapters/firecrawl"
	"github.com/Bharath8080/voiced/pkg/gateway/tools/adapters/openweather"
	"github.com/Bharath8080/voiced/pkg/gateway/tools/adapters/serper"
	"github.com/Bharath8080/voiced/pkg/gateway/tools/adapters/tavily"
	"github.com/Bharath8080/voiced/pkg/gateway/tools/adapters/yahoofinance"
)

// Deps carries the provider clients the builtin tools run on. Nil or
// unconfigured clients leave their tools unregistered.
type Deps struct {
	Tavily    *tavily.Client
	Weather   *openweather.Client
	Finance   *yahoofinance.Client
	Firecrawl *firecrawl.Client
	Serper    *serper.Client
	Chroma    *chroma.Client

	MaxSearchResults int
}

// Available returns executors for every tool whose provider is
// configured.
func Available(d Deps) []tools.Executor {
	var out []tools.Executor
	if d.Tavily.Configured() {
		out = append(out, NewWebSearch(d.Tavily, d.MaxSearchResults))
	}
	if d.Weather.Configured() {
		out = append(out, NewWeather(d.Weather))
	}
	if d.Finance != nil {
		out = append(out, NewStockPrice(d.Finance), NewCompanyInfo(d.Finance))
	}
	if d.Firecrawl.Configured() {
		out = append(out, NewWebFetch(d.Firecrawl), NewFlightSearch(d.Firecrawl), NewHotelSearch(d.Firecrawl))
	}
	if d.Serper.Configured() {
		out = append(out, NewShoppingSearch(d.Serper, d.MaxSearchResults))
	}
	if d.Chroma.Configured() {
		out = append(out, NewDocumentSearch(d.Chroma))
	}
	return out
}
