package sheetserver

import (
	"encoding/json"
	"fmt"
	"math"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/pokesheet/internal/apply"
	"github.com/cory-johannsen/pokesheet/internal/game/sheet"
	"github.com/cory-johannsen/pokesheet/internal/game/stats"
	"github.com/cory-johannsen/pokesheet/internal/roster"
)

// args reads typed fields from a request Struct.
type args struct {
	fields map[string]*structpb.Value
}

func argsOf(req *structpb.Struct) args {
	return args{fields: req.GetFields()}
}

func (a args) has(key string) bool {
	v, ok := a.fields[key]
	if !ok {
		return false
	}
	_, null := v.GetKind().(*structpb.Value_NullValue)
	return !null
}

func (a args) str(key string) (string, error) {
	v, ok := a.fields[key]
	if !ok {
		return "", invalidArgument("missing field %q", key)
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", invalidArgument("field %q must be a string", key)
	}
	return s.StringValue, nil
}

func (a args) number(key string) (int, error) {
	v, ok := a.fields[key]
	if !ok {
		return 0, invalidArgument("missing field %q", key)
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, invalidArgument("field %q must be a number", key)
	}
	f := n.NumberValue
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, invalidArgument("field %q must be an integer", key)
	}
	return int(f), nil
}

func (a args) flag(key string) (bool, error) {
	v, ok := a.fields[key]
	if !ok {
		return false, nil
	}
	b, ok := v.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return false, invalidArgument("field %q must be a bool", key)
	}
	return b.BoolValue, nil
}

func (a args) stat(key string) (stats.Stat, error) {
	name, err := a.str(key)
	if err != nil {
		return "", err
	}
	s, ok := stats.Parse(name)
	if !ok {
		return "", invalidArgument("unknown stat %q", name)
	}
	return s, nil
}

func (a args) owner() (string, error) {
	owner, err := a.str("owner")
	if err != nil {
		return "", err
	}
	if owner == "" {
		return "", invalidArgument("owner must not be empty")
	}
	return owner, nil
}

// jsonObject converts v to a Struct-compatible map through its JSON encoding.
func jsonObject(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func ints(in []int) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func strs(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

// sheetPayload describes s. The caller holds the engine's model lock.
func sheetPayload(s *sheet.Sheet) (map[string]any, error) {
	if !s.HasSpecies() {
		return map[string]any{"hasSpecies": false}, nil
	}
	rec, err := jsonObject(s.Record())
	if err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}
	effective := make(map[string]any, len(stats.All))
	for _, st := range stats.All {
		effective[string(st)] = s.EffectiveStat(st)
	}
	return map[string]any{
		"hasSpecies":         true,
		"speciesName":        s.SpeciesName(),
		"record":             rec,
		"effectiveStats":     effective,
		"requiredExperience": s.RequiredExperience(),
		"canLevelUp":         s.CanLevelUp(),
		"diceClass":          s.DiceClass().String(),
	}, nil
}

func slotPayload(s roster.Slot) map[string]any {
	return map[string]any{
		"position":  s.Position,
		"identity":  s.Identity,
		"speciesId": s.SpeciesID,
		"empty":     s.Empty(),
	}
}

func slotsPayload(slots []roster.Slot) []any {
	out := make([]any, len(slots))
	for i, s := range slots {
		out[i] = slotPayload(s)
	}
	return out
}

func levelUpPayload(r sheet.LevelUpReport) map[string]any {
	rolls := make([]any, len(r.Rolls))
	for i, roll := range r.Rolls {
		rolls[i] = map[string]any{
			"stat": string(roll.Stat),
			"raw":  roll.Raw,
			"dice": ints(roll.Dice),
			"old":  roll.Old,
			"new":  roll.New,
		}
	}
	return map[string]any{
		"level":               r.Level,
		"remainingExperience": r.RemainingExperience,
		"nextRequired":        r.NextRequired,
		"usedSecondary":       r.UsedSecondary,
		"rolls":               rolls,
	}
}

func noticesPayload(ns []apply.Notice) []any {
	out := make([]any, len(ns))
	for i, n := range ns {
		m := map[string]any{"kind": string(n.Kind), "message": n.Message}
		if n.Err != nil {
			m["error"] = n.Err.Error()
		}
		out[i] = m
	}
	return out
}

func toStruct(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding response: %v", err)
	}
	return out, nil
}
