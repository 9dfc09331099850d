package sheetserver

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/pokesheet/internal/game/dice"
	"github.com/cory-johannsen/pokesheet/internal/game/sheet"
)

// Server implements SheetServiceServer on top of per-owner workspaces.
type Server struct {
	workspaces *Workspaces
	deps       Deps
	logger     *zap.Logger
}

var _ SheetServiceServer = (*Server)(nil)

// NewServer creates a Server.
//
// Precondition: deps satisfies NewWorkspaces.
// Postcondition: Returns a Server with no workspaces.
func NewServer(deps Deps) *Server {
	return &Server{workspaces: NewWorkspaces(deps), deps: deps, logger: deps.Logger}
}

// Workspaces returns the server's workspace manager.
func (s *Server) Workspaces() *Workspaces { return s.workspaces }

// Close flushes and stops every workspace.
func (s *Server) Close(ctx context.Context) error { return s.workspaces.Close(ctx) }

func (s *Server) workspace(a args) (*Workspace, error) {
	owner, err := a.owner()
	if err != nil {
		return nil, err
	}
	ws, err := s.workspaces.Get(owner)
	if err != nil {
		return nil, toStatus(err)
	}
	return ws, nil
}

// respond builds the common response: the addressed sheet, the view and any
// notices, merged with extra.
func (s *Server) respond(ws *Workspace, extra map[string]any) (*structpb.Struct, error) {
	var (
		payload map[string]any
		err     error
	)
	ws.Engine.Inspect(func(sh *sheet.Sheet) {
		payload, err = sheetPayload(sh)
	})
	if err != nil {
		return nil, toStatus(err)
	}
	payload["owner"] = ws.Owner
	if _, identity, ok := ws.Engine.Coordinator().Context(); ok {
		payload["identity"] = identity
	}
	payload["view"] = ws.View.Text()
	payload["notices"] = noticesPayload(ws.DrainNotices())
	for k, v := range extra {
		payload[k] = v
	}
	return toStruct(payload)
}

// SelectSpecies applies a species to a roster slot.
func (s *Server) SelectSpecies(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	a := argsOf(req)
	ws, err := s.workspace(a)
	if err != nil {
		return nil, err
	}
	pos, err := a.number("slot")
	if err != nil {
		return nil, err
	}
	speciesID, err := a.number("speciesId")
	if err != nil {
		return nil, err
	}
	if speciesID <= 0 {
		return nil, invalidArgument("speciesId must be > 0")
	}
	res, err := ws.Engine.Select(ctx, ws.Owner, pos, speciesID)
	if err != nil {
		return nil, toStatus(err)
	}
	return s.respond(ws, map[string]any{
		"selection": map[string]any{
			"slot":             slotPayload(res.Slot),
			"hasExistingSheet": res.HasExistingSheet,
			"droppedSkillKeys": strs(res.DroppedSkillKeys),
		},
	})
}

// GetSheet returns the addressed sheet.
func (s *Server) GetSheet(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ws, err := s.workspace(argsOf(req))
	if err != nil {
		return nil, err
	}
	return s.respond(ws, nil)
}

// LevelUp levels the addressed sheet once.
func (s *Server) LevelUp(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ws, err := s.workspace(argsOf(req))
	if err != nil {
		return nil, err
	}
	report, err := ws.Engine.LevelUp()
	if err != nil {
		return nil, toStatus(err)
	}
	return s.respond(ws, map[string]any{"levelUp": levelUpPayload(report)})
}

// Mutate applies one named edit to the addressed sheet. A rejected value is
// InvalidArgument and leaves the sheet unchanged.
func (s *Server) Mutate(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	a := argsOf(req)
	ws, err := s.workspace(a)
	if err != nil {
		return nil, err
	}
	op, err := a.str("op")
	if err != nil {
		return nil, err
	}
	if op == OpInput {
		return s.input(ws, a)
	}
	m, ok := mutations[op]
	if !ok {
		return nil, invalidArgument("unknown op %q", op)
	}
	edit, err := m(s, a)
	if err != nil {
		return nil, err
	}
	accepted, err := ws.Engine.Edit(edit)
	if err != nil {
		return nil, toStatus(err)
	}
	if !accepted {
		return nil, invalidArgument("%s rejected", op)
	}
	s.logger.Debug("sheet mutated", zap.String("owner", ws.Owner), zap.String("op", op))
	return s.respond(ws, nil)
}

// input routes a raw widget edit through the view.
func (s *Server) input(ws *Workspace, a args) (*structpb.Struct, error) {
	widget, err := a.str("name")
	if err != nil {
		return nil, err
	}
	raw, err := a.str("text")
	if err != nil {
		return nil, err
	}
	if !ws.View.Input(widget, raw) {
		return nil, invalidArgument("input %q rejected", widget)
	}
	return s.respond(ws, nil)
}

// SwapSlots exchanges two roster slots.
func (s *Server) SwapSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	a := argsOf(req)
	ws, err := s.workspace(a)
	if err != nil {
		return nil, err
	}
	x, err := a.number("a")
	if err != nil {
		return nil, err
	}
	y, err := a.number("b")
	if err != nil {
		return nil, err
	}
	if err := ws.Engine.Swap(ctx, ws.Owner, x, y); err != nil {
		return nil, toStatus(err)
	}
	return s.rosterResponse(ctx, ws, nil)
}

// ClearSlot deletes the sheet of a slot and empties it.
func (s *Server) ClearSlot(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	a := argsOf(req)
	ws, err := s.workspace(a)
	if err != nil {
		return nil, err
	}
	pos, err := a.number("slot")
	if err != nil {
		return nil, err
	}
	cleared, err := ws.Engine.Clear(ctx, ws.Owner, pos)
	if err != nil {
		return nil, toStatus(err)
	}
	return s.rosterResponse(ctx, ws, map[string]any{"cleared": slotPayload(cleared)})
}

// ListRoster returns every slot of the owner's roster.
func (s *Server) ListRoster(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ws, err := s.workspace(argsOf(req))
	if err != nil {
		return nil, err
	}
	return s.rosterResponse(ctx, ws, nil)
}

func (s *Server) rosterResponse(ctx context.Context, ws *Workspace, extra map[string]any) (*structpb.Struct, error) {
	slots, err := s.deps.Roster.List(ctx, ws.Owner)
	if err != nil {
		return nil, toStatus(err)
	}
	out := map[string]any{
		"owner":   ws.Owner,
		"slots":   slotsPayload(slots),
		"notices": noticesPayload(ws.DrainNotices()),
	}
	for k, v := range extra {
		out[k] = v
	}
	return toStruct(out)
}

// classOf converts the text argument of setDiceClass.
func classOf(a args) (dice.Class, error) {
	text, err := a.str("text")
	if err != nil {
		return "", err
	}
	return dice.Class(text), nil
}
