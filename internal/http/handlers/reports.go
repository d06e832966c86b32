package handlers

import (
	"bytes"
	"errors"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"siteinsight/internal/report"
	ui "siteinsight/web"
)

// reportRequest builds the report request of kind from query parameters.
func reportRequest(ctx *fasthttp.RequestCtx, kind report.Kind, defaultLimit int) (report.Request, error) {
	args := ctx.QueryArgs()
	req := report.Request{
		Kind:    kind,
		Event:   string(args.Peek("event")),
		Page:    string(args.Peek("page")),
		Pattern: string(args.Peek("pattern")),
		Limit:   defaultLimit,
	}
	if s := string(args.Peek("limit")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return req, errors.New("limit must be an integer")
		}
		req.Limit = n
	}
	return req, nil
}

// ReportHandler runs the report of kind and writes it as plain text, or
// inside the HTML page when ?format=html.
func ReportHandler(engine *report.Engine, kind report.Kind, defaultLimit int, log *zap.Logger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		req, err := reportRequest(ctx, kind, defaultLimit)
		if err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, err.Error())
			return
		}

		start := time.Now()
		rep, err := engine.Run(ctx, req)
		if err != nil {
			if errors.Is(err, report.ErrInvalidInput) {
				errResponse(ctx, fasthttp.StatusBadRequest, err.Error())
				return
			}
			log.Error("report failed", zap.String("report", string(kind)), zap.Error(err))
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to query report")
			return
		}

		var buf bytes.Buffer
		if err := rep.Render(&buf); err != nil {
			log.Error("report render failed", zap.String("report", string(kind)), zap.Error(err))
			errResponse(ctx, fasthttp.StatusInternalServerError, "render error")
			return
		}
		reportDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())

		if string(ctx.QueryArgs().Peek("format")) == "html" {
			renderPage(ctx, kind, buf.String(), log)
			return
		}

		ctx.SetContentType("text/plain; charset=utf-8")
		ctx.SetBody(buf.Bytes())
	}
}

type pageData struct {
	Title   string
	Kinds   []report.Kind
	Active  report.Kind
	Content string
}

func renderPage(ctx *fasthttp.RequestCtx, kind report.Kind, content string, log *zap.Logger) {
	var buf bytes.Buffer
	data := pageData{Title: "Report: " + string(kind), Kinds: report.Kinds, Active: kind, Content: content}
	if err := ui.Templates().ExecuteTemplate(&buf, "report", data); err != nil {
		log.Error("template render failed", zap.Error(err))
		errResponse(ctx, fasthttp.StatusInternalServerError, "render error")
		return
	}
	ctx.SetContentType("text/html; charset=utf-8")
	ctx.SetBody(buf.Bytes())
}
