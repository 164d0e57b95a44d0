package persist

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/1broseidon/snaptile/internal/platform"
	"github.com/1broseidon/snaptile/internal/snap"
)

const (
	DefaultGeometryKey = "geometry.v1"
	DefaultSessionKey  = "session.v1"
)

// Geometry is the last known placement of a window title.
type Geometry struct {
	X       int            `json:"x"`
	Y       int            `json:"y"`
	W       int            `json:"w"`
	H       int            `json:"h"`
	Snapped snap.Kind      `json:"snapped,omitempty"`
	Zone    snap.Zone      `json:"zone,omitempty"`
	Prev    *platform.Rect `json:"prev,omitempty"`
}

// Rect returns the stored rectangle.
func (g Geometry) Rect() platform.Rect {
	return platform.Rect{X: g.X, Y: g.Y, Width: g.W, Height: g.H}
}

// GeometryMap maps a window title to its last known geometry.
type GeometryMap map[string]Geometry

// SessionWindow is one entry of the session document.
type SessionWindow struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Z     int    `json:"z"`
	Geometry
	Minimized bool `json:"minimized,omitempty"`
}

// Session is the full window list, used to reopen windows after a restart.
type Session struct {
	Windows []SessionWindow `json:"windows"`
}

// LoadGeometry reads the geometry map for key. A missing, unreadable or
// corrupt document yields an empty map.
func LoadGeometry(ctx context.Context, store Store, key string, logger *slog.Logger) GeometryMap {
	out := GeometryMap{}
	if !readJSON(ctx, store, key, &out, logger) || out == nil {
		return GeometryMap{}
	}
	return out
}

// LoadSession reads the session document for key, with the same fallback
// rules as LoadGeometry.
func LoadSession(ctx context.Context, store Store, key string, logger *slog.Logger) Session {
	var out Session
	if !readJSON(ctx, store, key, &out, logger) {
		return Session{}
	}
	return out
}

func readJSON(ctx context.Context, store Store, key string, out any, logger *slog.Logger) bool {
	if logger == nil {
		logger = slog.Default()
	}
	if store == nil {
		return false
	}
	data, err := store.ReadDocument(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.Warn("failed to read document", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		logger.Warn("ignoring corrupt document", "key", key, "error", err)
		return false
	}
	return true
}
