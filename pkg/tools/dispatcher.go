package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"esupchat/pkg/campus"
	"esupchat/pkg/logger"
	"esupchat/pkg/models"
	"esupchat/pkg/telemetry"
)

// DataClient is the slice of the campus client the dispatcher needs.
type DataClient interface {
	News(ctx context.Context, acct campus.Account) ([]campus.NewsItem, error)
	Contacts(ctx context.Context, acct campus.Account, query string) ([]campus.Contact, error)
	Menu(ctx context.Context, acct campus.Account, restaurantID string) ([]campus.MenuDay, error)
	ScheduleRange(ctx context.Context, acct campus.Account, from, to string) (campus.Schedule, error)
}

// DispatchContext carries the per-user data a handler may need.
type DispatchContext struct {
	Account             campus.Account
	PreferredRestaurant string
}

// Result is the observable outcome of one invocation: a JSON payload for
// the transcript's tool message. Failures are represented in the payload
// itself so the dialogue can continue.
type Result struct {
	CallID  string
	Content string
}

const newsLimit = 5

type handler func(ctx context.Context, dctx DispatchContext, args json.RawMessage) (interface{}, error)

// Dispatcher maps declared tool names to typed handlers.
type Dispatcher struct {
	dc       DataClient
	handlers map[string]handler
	now      func() time.Time
}

// NewDispatcher builds the dispatcher for the fixed tool set. It panics
// when the handler map and the declared schemas disagree, so a mismatch
// is caught at startup rather than mid-conversation.
func NewDispatcher(dc DataClient) *Dispatcher {
	d := &Dispatcher{dc: dc, now: time.Now}
	d.handlers = map[string]handler{
		ToolNews:     d.news,
		ToolContacts: d.contacts,
		ToolMenu:     d.menu,
		ToolSchedule: d.schedule,
	}
	for _, s := range schemaDefs {
		if _, ok := d.handlers[s.Name]; !ok {
			panic(fmt.Sprintf("tools: schema %q has no handler", s.Name))
		}
	}
	if len(d.handlers) != len(schemaDefs) {
		panic("tools: handler registered without a declared schema")
	}
	return d
}

// Dispatch executes one invocation. It never returns an error: unknown
// tools and upstream failures become {"error": ...} payloads, because the
// transcript must receive a tool message for every invocation the model
// made or the next completion round would be malformed.
func (d *Dispatcher) Dispatch(ctx context.Context, inv models.ToolInvocation, dctx DispatchContext) Result {
	h, ok := d.handlers[inv.Name]
	if !ok {
		logger.Warn("unknown_tool_requested", "tool", inv.Name, "call_id", inv.ID)
		telemetry.ToolErrors.WithLabelValues(inv.Name).Inc()
		return Result{CallID: inv.ID, Content: `{"error":"unknown tool"}`}
	}
	out, err := h(ctx, dctx, inv.Arguments)
	if err != nil {
		logger.Warn("tool_execution_failed", "tool", inv.Name, "call_id", inv.ID, "error", err)
		telemetry.ToolErrors.WithLabelValues(inv.Name).Inc()
		return Result{CallID: inv.ID, Content: errPayload(err)}
	}
	b, err := json.Marshal(out)
	if err != nil {
		telemetry.ToolErrors.WithLabelValues(inv.Name).Inc()
		return Result{CallID: inv.ID, Content: errPayload(err)}
	}
	return Result{CallID: inv.ID, Content: string(b)}
}

func errPayload(err error) string {
	b, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(b)
}

func (d *Dispatcher) news(ctx context.Context, dctx DispatchContext, _ json.RawMessage) (interface{}, error) {
	items, err := d.dc.News(ctx, dctx.Account)
	if err != nil {
		return nil, err
	}
	if len(items) > newsLimit {
		items = items[:newsLimit]
	}
	return map[string]interface{}{"actualities": items}, nil
}

func (d *Dispatcher) contacts(ctx context.Context, dctx DispatchContext, args json.RawMessage) (interface{}, error) {
	var a struct {
		Name string `json:"name"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, fmt.Errorf("invalid arguments: %w", err)
		}
	}
	if a.Name == "" {
		return nil, fmt.Errorf("name argument is required")
	}
	contacts, err := d.dc.Contacts(ctx, dctx.Account, a.Name)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"contacts": contacts}, nil
}

func (d *Dispatcher) menu(ctx context.Context, dctx DispatchContext, args json.RawMessage) (interface{}, error) {
	var a struct {
		ID string `json:"id"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, fmt.Errorf("invalid arguments: %w", err)
		}
	}
	id := a.ID
	if id == "" {
		id = dctx.PreferredRestaurant
	}
	if id == "" {
		return nil, fmt.Errorf("no restaurant id given and no preferred restaurant configured")
	}
	days, err := d.dc.Menu(ctx, dctx.Account, id)
	if err != nil {
		return nil, err
	}
	// only days after today carry upcoming meals
	today := d.now().Format("2006-01-02")
	upcoming := make([]campus.MenuDay, 0, len(days))
	for _, day := range days {
		if day.Date > today {
			upcoming = append(upcoming, day)
		}
	}
	return map[string]interface{}{"restaurant": id, "menu": upcoming}, nil
}

func (d *Dispatcher) schedule(ctx context.Context, dctx DispatchContext, _ json.RawMessage) (interface{}, error) {
	now := d.now()
	from := now.Format("2006-01-02")
	to := now.AddDate(0, 0, 7).Format("2006-01-02")
	sched, err := d.dc.ScheduleRange(ctx, dctx.Account, from, to)
	if err != nil {
		return nil, err
	}

	type course struct {
		Start    time.Time `json:"start"`
		End      time.Time `json:"end"`
		Subject  string    `json:"subject"`
		Type     string    `json:"type,omitempty"`
		Room     string    `json:"room"`
		Teachers []string  `json:"teachers,omitempty"`
		Groups   []string  `json:"groups,omitempty"`
	}
	type planning struct {
		Name    string   `json:"name"`
		Courses []course `json:"courses"`
	}

	out := make([]planning, 0, len(sched.Plannings))
	for _, p := range sched.Plannings {
		pl := planning{Name: p.Label, Courses: []course{}}
		for _, ev := range p.Events {
			if !ev.StartDateTime.After(now) {
				continue
			}
			c := course{
				Start:   ev.StartDateTime,
				End:     ev.EndDateTime,
				Subject: ev.Course.Label,
				Type:    ev.Course.Type,
				Room:    "unknown",
			}
			if len(ev.Rooms) > 0 {
				c.Room = ev.Rooms[0].Label
			}
			for _, t := range ev.Teachers {
				c.Teachers = append(c.Teachers, t.DisplayName)
			}
			for _, g := range ev.Groups {
				c.Groups = append(c.Groups, g.Label)
			}
			pl.Courses = append(pl.Courses, c)
		}
		sort.Slice(pl.Courses, func(i, j int) bool {
			return pl.Courses[i].Start.Before(pl.Courses[j].Start)
		})
		out = append(out, pl)
	}
	return map[string]interface{}{"plannings": out}, nil
}
