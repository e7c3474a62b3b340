package adapter

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/evalgate/evalgate/internal/models"
)

type weatherReport struct {
	TempC     float64
	Condition string
	Humidity  int
	WindKph   int
}

var weatherData = map[string]weatherReport{
	"london":        {TempC: 12, Condition: "Cloudy", Humidity: 78, WindKph: 15},
	"new york":      {TempC: 22, Condition: "Sunny", Humidity: 55, WindKph: 10},
	"tokyo":         {TempC: 28, Condition: "Partly cloudy", Humidity: 65, WindKph: 8},
	"paris":         {TempC: 18, Condition: "Rainy", Humidity: 82, WindKph: 20},
	"sydney":        {TempC: 25, Condition: "Sunny", Humidity: 60, WindKph: 12},
	"mumbai":        {TempC: 33, Condition: "Humid", Humidity: 90, WindKph: 5},
	"berlin":        {TempC: 15, Condition: "Overcast", Humidity: 70, WindKph: 18},
	"san francisco": {TempC: 16, Condition: "Foggy", Humidity: 85, WindKph: 22},
}

type unitPair struct{ from, to string }

var unitConversions = map[unitPair]func(float64) float64{
	{"km", "miles"}:           func(v float64) float64 { return v * 0.621371 },
	{"miles", "km"}:           func(v float64) float64 { return v * 1.60934 },
	{"kg", "lbs"}:             func(v float64) float64 { return v * 2.20462 },
	{"lbs", "kg"}:             func(v float64) float64 { return v / 2.20462 },
	{"celsius", "fahrenheit"}: func(v float64) float64 { return v*9/5 + 32 },
	{"fahrenheit", "celsius"}: func(v float64) float64 { return (v - 32) * 5 / 9 },
	{"meters", "feet"}:        func(v float64) float64 { return v * 3.28084 },
	{"feet", "meters"}:        func(v float64) float64 { return v / 3.28084 },
	{"cm", "inches"}:          func(v float64) float64 { return v / 2.54 },
	{"inches", "cm"}:          func(v float64) float64 { return v * 2.54 },
	{"liters", "gallons"}:     func(v float64) float64 { return v * 0.264172 },
	{"gallons", "liters"}:     func(v float64) float64 { return v / 0.264172 },
}

// unitAliases normalizes the unit spellings people actually type.
var unitAliases = map[string]string{
	"kilometers": "km", "kilometres": "km", "kms": "km",
	"mile": "miles", "mi": "miles",
	"kilograms": "kg", "kilos": "kg",
	"pounds": "lbs", "lb": "lbs",
	"c": "celsius", "f": "fahrenheit",
	"meter": "meters", "metres": "meters", "m": "meters",
	"foot": "feet", "ft": "feet",
	"centimeters": "cm", "centimetres": "cm",
	"inch": "inches", "in": "inches",
	"liter": "liters", "litres": "liters", "l": "liters",
	"gallon": "gallons", "gal": "gallons",
}

var (
	arithmeticPattern = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*(\+|-|\*\*|\*|x|/)\s*(-?\d+(?:\.\d+)?)`)
	sqrtPattern       = regexp.MustCompile(`sqrt\s*\(?\s*(\d+(?:\.\d+)?)\s*\)?|square root of\s+(\d+(?:\.\d+)?)`)
	percentPattern    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:%|percent)\s+of\s+(\d+(?:\.\d+)?)`)
	conversionPattern = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*(?:degrees\s+)?([a-z]+)\s+(?:to|in|into)\s+([a-z]+)`)
	weatherPattern    = regexp.MustCompile(`weather(?:\s+like)?\s+in\s+([a-z .]+?)(?:\?|$|\s+today|\s+right now)`)
)

// DemoToolAgent routes queries to local tools with keyword heuristics,
// standing in for a function-calling model. Tool behavior matches the
// live agent, only the routing is deterministic.
type DemoToolAgent struct{}

func NewDemoToolAgent() *DemoToolAgent { return &DemoToolAgent{} }

func (a *DemoToolAgent) Setup(ctx context.Context) error { return nil }
func (a *DemoToolAgent) Teardown() error                 { return nil }

func (a *DemoToolAgent) Run(ctx context.Context, query string) (*models.PipelineOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lowered := strings.ToLower(query)

	var calls []models.ToolCall
	var answers []string

	if city, ok := matchWeather(lowered); ok {
		call, answer := a.getWeather(city)
		calls = append(calls, call)
		answers = append(answers, answer)
	}
	if value, from, to, ok := matchConversion(lowered); ok {
		call, answer := a.convertUnits(value, from, to)
		calls = append(calls, call)
		answers = append(answers, answer)
	}
	if expr, result, ok := matchArithmetic(lowered); ok && len(calls) == 0 {
		calls = append(calls, models.ToolCall{
			Tool:   "calculator",
			Args:   map[string]any{"expression": expr},
			Result: map[string]any{"expression": expr, "result": result},
		})
		answers = append(answers, fmt.Sprintf("The result of %s is %s.", expr, formatNumber(result)))
	}

	if len(calls) == 0 {
		return &models.PipelineOutput{
			Answer: "I can help with calculations, weather lookups, and unit conversions. Could you rephrase your question?",
			Metadata: map[string]any{
				"adapter":         "demo_tool_agent",
				"tools_called":    []string{},
				"tool_call_count": 0,
			},
		}, nil
	}

	toolNames := make([]string, len(calls))
	contexts := make([]string, len(calls))
	for i, call := range calls {
		toolNames[i] = call.Tool
		contexts[i] = fmt.Sprintf("[%s] %v", call.Tool, call.Result)
	}

	return &models.PipelineOutput{
		Answer:            strings.Join(answers, " "),
		RetrievedContexts: contexts,
		ToolCalls:         calls,
		Metadata: map[string]any{
			"adapter":         "demo_tool_agent",
			"tools_called":    toolNames,
			"tool_call_count": len(calls),
		},
	}, nil
}

func (a *DemoToolAgent) getWeather(city string) (models.ToolCall, string) {
	call := models.ToolCall{
		Tool: "get_weather",
		Args: map[string]any{"city": city},
	}
	report, ok := weatherData[city]
	if !ok {
		call.Result = map[string]any{"error": fmt.Sprintf("Weather data not available for '%s'", city)}
		return call, fmt.Sprintf("I do not have weather data for %s.", titleCase(city))
	}
	call.Result = map[string]any{
		"city":      titleCase(city),
		"temp_c":    report.TempC,
		"condition": report.Condition,
		"humidity":  report.Humidity,
		"wind_kph":  report.WindKph,
	}
	answer := fmt.Sprintf("The weather in %s is %s with a temperature of %s°C, %d%% humidity, and wind at %d km/h.",
		titleCase(city), strings.ToLower(report.Condition), formatNumber(report.TempC), report.Humidity, report.WindKph)
	return call, answer
}

func (a *DemoToolAgent) convertUnits(value float64, from, to string) (models.ToolCall, string) {
	call := models.ToolCall{
		Tool: "unit_converter",
		Args: map[string]any{"value": value, "from_unit": from, "to_unit": to},
	}
	if from == to {
		call.Result = map[string]any{"input": value, "from": from, "to": to, "result": value}
		return call, fmt.Sprintf("%s %s is %s %s.", formatNumber(value), from, formatNumber(value), to)
	}
	convert, ok := unitConversions[unitPair{from, to}]
	if !ok {
		call.Result = map[string]any{"error": fmt.Sprintf("Cannot convert from '%s' to '%s'", from, to)}
		return call, fmt.Sprintf("I cannot convert from %s to %s.", from, to)
	}
	result := math.Round(convert(value)*10000) / 10000
	call.Result = map[string]any{"input": value, "from": from, "to": to, "result": result}
	return call, fmt.Sprintf("%s %s is %s %s.", formatNumber(value), from, formatNumber(result), to)
}

func matchWeather(query string) (string, bool) {
	if !strings.Contains(query, "weather") {
		return "", false
	}
	if m := weatherPattern.FindStringSubmatch(query); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	// No "in <city>" clause; look for a known city anywhere in the query.
	for city := range weatherData {
		if strings.Contains(query, city) {
			return city, true
		}
	}
	return "", false
}

func matchConversion(query string) (float64, string, string, bool) {
	if !strings.Contains(query, "convert") && !strings.Contains(query, " to ") && !strings.Contains(query, " in ") {
		return 0, "", "", false
	}
	m := conversionPattern.FindStringSubmatch(query)
	if m == nil {
		return 0, "", "", false
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, "", "", false
	}
	from := normalizeUnit(m[2])
	to := normalizeUnit(m[3])
	if _, ok := unitConversions[unitPair{from, to}]; !ok && from != to {
		return 0, "", "", false
	}
	return value, from, to, true
}

func matchArithmetic(query string) (string, float64, bool) {
	if m := percentPattern.FindStringSubmatch(query); m != nil {
		pct, _ := strconv.ParseFloat(m[1], 64)
		base, _ := strconv.ParseFloat(m[2], 64)
		expr := fmt.Sprintf("%s%% of %s", m[1], m[2])
		return expr, pct / 100 * base, true
	}
	if m := sqrtPattern.FindStringSubmatch(query); m != nil {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		v, _ := strconv.ParseFloat(raw, 64)
		return fmt.Sprintf("sqrt(%s)", raw), math.Sqrt(v), true
	}
	if m := arithmeticPattern.FindStringSubmatch(query); m != nil {
		left, _ := strconv.ParseFloat(m[1], 64)
		right, _ := strconv.ParseFloat(m[3], 64)
		op := m[2]
		var result float64
		switch op {
		case "+":
			result = left + right
		case "-":
			result = left - right
		case "*", "x":
			result = left * right
			op = "*"
		case "/":
			if right == 0 {
				return "", 0, false
			}
			result = left / right
		case "**":
			result = math.Pow(left, right)
		}
		return fmt.Sprintf("%s %s %s", m[1], op, m[3]), result, true
	}
	return "", 0, false
}

func normalizeUnit(unit string) string {
	if canonical, ok := unitAliases[unit]; ok {
		return canonical
	}
	return unit
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
