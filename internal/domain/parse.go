package domain

import (
	"context"
	"encoding/json"
	"log"
	"regexp"
	"strconv"
	"strings"

	"example.com/fitsync/internal/observability"
)

// parsePrompt instructs the model to emit a bare JSON array of sets.
const parsePrompt = `You are a workout logging assistant. Parse natural language workout input and return structured JSON.

Rules:
1. Identify exercise name, weight (kg), sets, reps
2. Common aliases: "bench" = "Bench Press", "squat" = "Squat", "dl" or "dead" = "Deadlift"
3. Format: exercise weight sets reps (e.g., "bench 80 3 10")
4. RPE (rate of perceived exertion) if mentioned (1-10)
5. Return ONLY valid JSON array, no markdown or extra text

Example input: "bench 80 3 10, squat 100 4 8"
Example output: [{"exerciseName":"Bench Press","weight":80,"sets":3,"reps":10},{"exerciseName":"Squat","weight":100,"sets":4,"reps":8}]`

var (
	codeFencePattern = regexp.MustCompile("```json\n?|```\n?")

	// exercise name, weight, sets, reps, optional trailing "rpe N".
	setLinePattern = regexp.MustCompile(`(?i)([a-zA-Z\s]+?)\s+(\d+(?:\.\d+)?)\s+(\d+)\s+(\d+)(?:\s+rpe\s*(\d+))?`)
)

// ExerciseCatalog lists the canonical exercise names parsed sets are matched against.
type ExerciseCatalog interface {
	ListExercises(ctx context.Context) ([]Exercise, error)
}

// ParseService turns free-text workout input into structured sets.
type ParseService struct {
	catalog   ExerciseCatalog
	completer Completer
}

// NewParseService constructs a ParseService.
func NewParseService(catalog ExerciseCatalog, completer Completer) *ParseService {
	return &ParseService{catalog: catalog, completer: completer}
}

// Parse asks the completion endpoint to structure the input, falls back to the
// regex parser when the response is not valid JSON, then matches each parsed
// exercise name against the catalog. The raw model response is returned for
// client-side debugging.
func (s *ParseService) Parse(ctx context.Context, input string) ([]ParsedSet, string, error) {
	raw, err := s.completer.Complete(ctx, parsePrompt, input, 0.3, 1024)
	if err != nil {
		return nil, "", err
	}

	cleaned := strings.TrimSpace(codeFencePattern.ReplaceAllString(raw, ""))

	var parsed []ParsedSet
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		log.Printf("failed to parse completion response, using regex fallback: %v", err)
		// Fall back against the original input, not the malformed model output.
		parsed = regexParse(input)
		observability.RecordParseRequest(true)
	} else {
		observability.RecordParseRequest(false)
	}

	exercises, err := s.catalog.ListExercises(ctx)
	if err != nil {
		// Matching degrades to no catalog hits rather than failing the request.
		log.Printf("failed to fetch exercise catalog: %v", err)
	}

	for i := range parsed {
		if match := matchExercise(exercises, parsed[i].ExerciseName); match != nil {
			id := match.ID
			parsed[i].ExerciseID = &id
			parsed[i].ExerciseName = match.Name
		}
	}

	return parsed, raw, nil
}

func regexParse(input string) []ParsedSet {
	matches := setLinePattern.FindAllStringSubmatch(input, -1)
	results := make([]ParsedSet, 0, len(matches))
	for _, m := range matches {
		weight, _ := strconv.ParseFloat(m[2], 64)
		sets, _ := strconv.Atoi(m[3])
		reps, _ := strconv.Atoi(m[4])
		set := ParsedSet{
			ExerciseName: strings.TrimSpace(m[1]),
			Weight:       weight,
			Sets:         sets,
			Reps:         reps,
		}
		if m[5] != "" {
			if rpe, err := strconv.Atoi(m[5]); err == nil {
				set.RPE = &rpe
			}
		}
		results = append(results, set)
	}
	return results
}

// matchExercise finds the first catalog entry whose name contains the parsed
// name or is contained by it, ignoring case.
func matchExercise(exercises []Exercise, name string) *Exercise {
	lowered := strings.ToLower(name)
	for i := range exercises {
		catalogName := strings.ToLower(exercises[i].Name)
		if strings.Contains(catalogName, lowered) || strings.Contains(lowered, catalogName) {
			return &exercises[i]
		}
	}
	return nil
}
