package server

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"

	graphql "github.com/graph-gophers/graphql-go"

	"procinfo/models"
	"procinfo/query"
)

// SDL is the GraphQL schema served on / and written to SCHEMA_PATH.
const SDL = `scalar UInt64

schema {
	query: Query
}

type Query {
	processes(
		pid: Int
		minUsage: Float
		minRssKb: UInt64
		minRuntimeMs: UInt64
		sleepMs: UInt64
	): [ProcessInfo!]!
}

type ProcessInfo {
	pid: Int!
	usage: Float!
	name: String!
	rss: UInt64!
	runtimeMs: UInt64!
	vsz: UInt64!
}
`

// WriteSchema saves the SDL so clients can generate code against it.
func WriteSchema(path string) error {
	if err := os.WriteFile(path, []byte(SDL), 0o644); err != nil {
		return fmt.Errorf("write schema %s: %w", path, err)
	}
	return nil
}

// NewSchema binds the SDL to engine.
func NewSchema(engine Querier) (*graphql.Schema, error) {
	schema, err := graphql.ParseSchema(SDL, &rootResolver{engine: engine})
	if err != nil {
		return nil, fmt.Errorf("parse graphql schema: %w", err)
	}
	return schema, nil
}

// UInt64 is an unsigned 64-bit integer scalar; GraphQL Int is only 32 bits.
type UInt64 uint64

func (UInt64) ImplementsGraphQLType(name string) bool {
	return name == "UInt64"
}

func (u *UInt64) UnmarshalGraphQL(input interface{}) error {
	switch v := input.(type) {
	case int32:
		if v < 0 {
			return fmt.Errorf("%w: UInt64 cannot be negative: %d", query.ErrInvalidFilter, v)
		}
		*u = UInt64(v)
	case int:
		if v < 0 {
			return fmt.Errorf("%w: UInt64 cannot be negative: %d", query.ErrInvalidFilter, v)
		}
		*u = UInt64(v)
	case int64:
		if v < 0 {
			return fmt.Errorf("%w: UInt64 cannot be negative: %d", query.ErrInvalidFilter, v)
		}
		*u = UInt64(v)
	case float64:
		if v < 0 || v != math.Trunc(v) || v >= 1<<64 {
			return fmt.Errorf("%w: UInt64 out of range: %v", query.ErrInvalidFilter, v)
		}
		*u = UInt64(v)
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: UInt64 %q: %v", query.ErrInvalidFilter, v, err)
		}
		*u = UInt64(n)
	default:
		return fmt.Errorf("%w: wrong type for UInt64: %T", query.ErrInvalidFilter, input)
	}
	return nil
}

func (u UInt64) MarshalJSON() ([]byte, error) {
	return strconv.AppendUint(nil, uint64(u), 10), nil
}

func (u *UInt64) value() *uint64 {
	if u == nil {
		return nil
	}
	v := uint64(*u)
	return &v
}

type rootResolver struct {
	engine Querier
}

type processesArgs struct {
	Pid          *int32
	MinUsage     *float64
	MinRssKb     *UInt64
	MinRuntimeMs *UInt64
	SleepMs      *UInt64
}

func (r *rootResolver) Processes(ctx context.Context, args processesArgs) ([]*processResolver, error) {
	f := query.Filter{
		MinUsage:     args.MinUsage,
		MinRSSKB:     args.MinRssKb.value(),
		MinRuntimeMS: args.MinRuntimeMs.value(),
		SettleMS:     args.SleepMs.value(),
	}
	if args.Pid != nil {
		pid := int64(*args.Pid)
		f.PID = &pid
	}

	procs, err := r.engine.Execute(ctx, f)
	if err != nil {
		return nil, err
	}

	out := make([]*processResolver, 0, len(procs))
	for _, p := range procs {
		out = append(out, &processResolver{p: p})
	}
	return out, nil
}

type processResolver struct {
	p models.ProcessMetrics
}

func (r *processResolver) Pid() int32        { return r.p.PID }
func (r *processResolver) Usage() float64    { return r.p.Usage }
func (r *processResolver) Name() string      { return r.p.Name }
func (r *processResolver) Rss() UInt64       { return UInt64(r.p.RSS) }
func (r *processResolver) RuntimeMs() UInt64 { return UInt64(r.p.RuntimeMS) }
func (r *processResolver) Vsz() UInt64       { return UInt64(r.p.VSZ) }
