package executors

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/flowrun/flowrun/internal/data"
	"github.com/flowrun/flowrun/internal/engine"
)

// RandomExecutor generates a random number in the configured range.
type RandomExecutor struct{}

func (e *RandomExecutor) NodeTypes() []string {
	return []string{"random"}
}

func (e *RandomExecutor) Execute(ctx context.Context, node *engine.Node, input any, results map[string]map[string]any, parentID string) (map[string]any, error) {
	minValue := node.ConfigFloat("min_value", 0)
	maxValue := node.ConfigFloat("max_value", 100)
	decimalPlaces := node.ConfigInt("decimal_places", 0)
	outputType := node.ConfigString("output_type", "float")

	if minValue >= maxValue {
		return nil, fmt.Errorf("invalid range: minimum must be less than maximum")
	}

	value := minValue + rand.Float64()*(maxValue-minValue)

	if outputType == "integer" || decimalPlaces == 0 {
		value = math.Round(value)
	} else {
		shift := math.Pow(10, float64(decimalPlaces))
		value = math.Round(value*shift) / shift
	}

	text := data.Stringify(value)
	return map[string]any{
		"number":  value,
		"text":    text,
		"data":    text,
		"integer": int(math.Round(value)),
		"float":   value,
	}, nil
}
