package connector

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/cube2222/connplan/partition"
)

type Backend string

const (
	Cassandra     Backend = "cassandra"
	Elasticsearch Backend = "elasticsearch"
	SQL           Backend = "sql"
)

// Mode is fixed at construction, a configuration is never both a read and a write configuration.
type Mode string

const (
	Read  Mode = "read"
	Write Mode = "write"
)

func ParseMode(text string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(text))) {
	case Read:
		return Read, nil
	case Write:
		return Write, nil
	default:
		return "", errors.Errorf("invalid mode: %s", text)
	}
}

type State int

const (
	Building State = iota
	Initialized
)

func (s State) String() string {
	switch s {
	case Building:
		return "building"
	case Initialized:
		return "initialized"
	default:
		return "unknown"
	}
}

type ShapeKind string

const (
	// Cells is a generic ordered bag of named cells.
	Cells ShapeKind = "cells"
	// Record is a fixed-shape record type.
	Record ShapeKind = "record"
)

// EntityShape describes how rows map to the caller's target representation.
type EntityShape struct {
	Kind ShapeKind
	// Name of the record type, empty for Cells.
	Name string
}

func CellsShape() EntityShape {
	return EntityShape{Kind: Cells}
}

func RecordShape(name string) EntityShape {
	return EntityShape{Kind: Record, Name: name}
}

// ParseEntityShape parses "cells" or "record:<Name>".
func ParseEntityShape(text string) (EntityShape, error) {
	text = strings.TrimSpace(text)
	if strings.EqualFold(text, string(Cells)) {
		return CellsShape(), nil
	}
	kind, name, ok := strings.Cut(text, ":")
	if !ok || !strings.EqualFold(kind, string(Record)) || strings.TrimSpace(name) == "" {
		return EntityShape{}, errors.Errorf("invalid entity shape %q, expected cells or record:<Name>", text)
	}
	return RecordShape(strings.TrimSpace(name)), nil
}

func (s EntityShape) String() string {
	if s.Kind == Record {
		return string(Record) + ":" + s.Name
	}
	return string(s.Kind)
}

// ReaderKind names the reader implementation the engine should instantiate.
type ReaderKind string

// Split is a single independently readable part of a scan.
// Unbounded splits read everything the native query returns.
type Split struct {
	Index   int
	Range   partition.Range
	Bounded bool
}

// Empty splits are read as zero rows.
func (s Split) Empty() bool {
	return s.Bounded && s.Range.Empty()
}

// NativeConfiguration is the backend-specific payload consumed by the native readers.
type NativeConfiguration interface {
	Backend() Backend
	Splits() []Split
}

// Configuration is the contract the engine uses to get at a connector's native configuration.
// All methods are safe for concurrent use.
type Configuration interface {
	Backend() Backend
	Mode() Mode
	EntityShape() EntityShape
	State() State
	// NativeConfiguration initializes the configuration on first use, unless auto-initialization is disabled.
	NativeConfiguration() (NativeConfiguration, error)
}

// PlanSplits returns a single unbounded split, or the planned ranges when bounded.
func PlanSplits(common Common, bounded bool) ([]Split, error) {
	if !bounded {
		return []Split{{Index: 0}}, nil
	}
	ranges, err := partition.Plan(common.LowerBound, common.UpperBound, common.Partitions)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't plan partitions")
	}
	splits := make([]Split, len(ranges))
	for i := range ranges {
		splits[i] = Split{Index: i, Range: ranges[i], Bounded: true}
	}
	return splits, nil
}
