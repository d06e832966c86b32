package handlers

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	dbpkg "siteinsight/internal/db"
	httpctx "siteinsight/internal/http/ctx"
)

// TrackEvent is the body sent by tracking.js for every tracked click.
type TrackEvent struct {
	EventName string         `json:"event_name"`
	Page      string         `json:"page"`
	Variant   *string        `json:"variant,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type pageViewRequest struct {
	Page    string  `json:"page"`
	Variant *string `json:"variant,omitempty"`
}

type assignmentRequest struct {
	Variant string `json:"variant"`
}

// resolveVariant prefers an explicit non-empty variant over the cookie one.
func resolveVariant(explicit *string, fromCookie string) string {
	if explicit != nil && strings.TrimSpace(*explicit) != "" {
		return strings.TrimSpace(*explicit)
	}
	return fromCookie
}

type fieldLimit struct {
	name  string
	value string
	max   int
}

// tooLong returns an error message for the first value that would not fit
// its column, counted in characters as Postgres varchar does.
func tooLong(limits ...fieldLimit) (string, bool) {
	for _, l := range limits {
		if utf8.RuneCountInString(l.value) > l.max {
			return fmt.Sprintf("%s must be at most %d characters", l.name, l.max), true
		}
	}
	return "", false
}

// TrackHandler stores one interaction event for the current session.
func TrackHandler(store *dbpkg.Store, log *zap.Logger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var payload TrackEvent
		if err := json.Unmarshal(ctx.PostBody(), &payload); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}
		payload.EventName = strings.TrimSpace(payload.EventName)
		payload.Page = strings.TrimSpace(payload.Page)
		if payload.EventName == "" || payload.Page == "" {
			errResponse(ctx, fasthttp.StatusBadRequest, "event_name and page are required")
			return
		}

		sessionID, cookieVariant := httpctx.SessionFromCtx(ctx)
		variant := resolveVariant(payload.Variant, cookieVariant)
		if msg, bad := tooLong(
			fieldLimit{"event_name", payload.EventName, dbpkg.MaxEventNameLen},
			fieldLimit{"page", payload.Page, dbpkg.MaxPageLen},
			fieldLimit{"variant", variant, dbpkg.MaxVariantNameLen},
			fieldLimit{"session id", sessionID, dbpkg.MaxSessionIDLen},
		); bad {
			errResponse(ctx, fasthttp.StatusBadRequest, msg)
			return
		}

		var metadata datatypes.JSONMap
		if len(payload.Metadata) > 0 {
			metadata = datatypes.JSONMap(payload.Metadata)
		}

		ev := &dbpkg.Event{
			Timestamp:   time.Now().UTC(),
			SessionID:   sessionID,
			EventName:   payload.EventName,
			PageURL:     payload.Page,
			VariantName: variant,
			Metadata:    metadata,
			Referrer:    string(ctx.Request.Header.Referer()),
			UserAgent:   string(ctx.Request.Header.UserAgent()),
		}
		if err := store.InsertEvent(ctx, ev); err != nil {
			log.Error("failed to persist event", zap.String("event_name", ev.EventName), zap.Error(err))
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to persist event")
			return
		}

		eventsTotal.WithLabelValues(variantLabels.value(variant)).Inc()
		jsonResponse(ctx, map[string]any{"status": "ok"})
	}
}

// PageViewHandler stores one page view for the current session.
func PageViewHandler(store *dbpkg.Store, log *zap.Logger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var payload pageViewRequest
		if err := json.Unmarshal(ctx.PostBody(), &payload); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}
		payload.Page = strings.TrimSpace(payload.Page)
		if payload.Page == "" {
			errResponse(ctx, fasthttp.StatusBadRequest, "page is required")
			return
		}

		sessionID, cookieVariant := httpctx.SessionFromCtx(ctx)
		variant := resolveVariant(payload.Variant, cookieVariant)
		if msg, bad := tooLong(
			fieldLimit{"page", payload.Page, dbpkg.MaxPageLen},
			fieldLimit{"variant", variant, dbpkg.MaxVariantNameLen},
			fieldLimit{"session id", sessionID, dbpkg.MaxSessionIDLen},
		); bad {
			errResponse(ctx, fasthttp.StatusBadRequest, msg)
			return
		}

		pv := &dbpkg.PageView{
			Timestamp:   time.Now().UTC(),
			SessionID:   sessionID,
			Page:        payload.Page,
			VariantName: variant,
		}
		if err := store.InsertPageView(ctx, pv); err != nil {
			log.Error("failed to persist page view", zap.String("page", pv.Page), zap.Error(err))
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to persist page view")
			return
		}

		pageviewsTotal.WithLabelValues(variantLabels.value(variant)).Inc()
		jsonResponse(ctx, map[string]any{"status": "ok"})
	}
}

// AssignmentHandler records the variant chosen for the current session.
func AssignmentHandler(store *dbpkg.Store, log *zap.Logger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var payload assignmentRequest
		if err := json.Unmarshal(ctx.PostBody(), &payload); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}
		sessionID, _ := httpctx.SessionFromCtx(ctx)
		payload.Variant = strings.TrimSpace(payload.Variant)
		if payload.Variant == "" || sessionID == "" {
			errResponse(ctx, fasthttp.StatusBadRequest, "variant and a session cookie are required")
			return
		}
		if msg, bad := tooLong(
			fieldLimit{"variant", payload.Variant, dbpkg.MaxVariantNameLen},
			fieldLimit{"session id", sessionID, dbpkg.MaxSessionIDLen},
		); bad {
			errResponse(ctx, fasthttp.StatusBadRequest, msg)
			return
		}

		a := &dbpkg.Assignment{SessionID: sessionID, VariantName: payload.Variant}
		if err := store.InsertAssignment(ctx, a); err != nil {
			log.Error("failed to persist assignment", zap.String("session_id", sessionID), zap.Error(err))
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to persist assignment")
			return
		}

		jsonResponse(ctx, map[string]any{"status": "ok"})
	}
}
