package builtins

import (
	"context"
	"fmt"

	"github.com/Bharath8080/voiced/pkg/core/types"
	"github.com/Bharath8080/voiced/pkg/gateway/tools/adapters/openweather"
)

// Weather reports current conditions for a city.
type Weather struct {
	client *openweather.Client
}

func NewWeather(client *openweather.Client) *Weather {
	return &Weather{client: client}
}

func (t *Weather) Name() string { return "get_weather" }

func (t *Weather) Description() string {
	return "Get the current weather for a city."
}

func (t *Weather) Schema() *types.JSONSchema {
	return &types.JSONSchema{
		Type: "object",
		Properties: map[string]*types.JSONSchema{
			"city": {Type: "string", Description: "City name, e.g. \"Paris\" or \"New York\"."},
		},
		Required: []string{"city"},
	}
}

func (t *Weather) Execute(ctx context.Context, args map[string]any) (string, error) {
	city, _ := args["city"].(string)
	obs, err := t.client.Current(ctx, city)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Weather in %s, %s: %s, %.1f C (feels like %.1f C), humidity %d%%, wind %.1f m/s.",
		obs.City, obs.Country, obs.Condition, obs.TempC, obs.FeelsLikeC, obs.Humidity, obs.WindSpeedMS), nil
}
