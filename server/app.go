package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meikuraledutech/pipeline"
)

// server holds everything the HTTP handlers share.
type server struct {
	tools    pipeline.ToolRegistry
	store    pipeline.Store
	editor   *pipeline.Editor
	draft    *draft
	metrics  *metrics
	registry *prometheus.Registry
	log      *slog.Logger
}

// newServer wires the handlers' dependencies and loads the saved pipeline
// into the draft. A saved pipeline that no longer validates is logged and
// the draft starts empty.
func newServer(ctx context.Context, tools pipeline.ToolRegistry, store pipeline.Store, editor *pipeline.Editor, log *slog.Logger) (*server, error) {
	reg := prometheus.NewRegistry()
	m := newMetrics(reg)
	s := &server{
		tools:    tools,
		store:    store,
		editor:   editor,
		draft:    newDraft(store, m),
		metrics:  m,
		registry: reg,
		log:      log,
	}
	if err := s.draft.reload(ctx); err != nil {
		if !errors.Is(err, pipeline.ErrCorruptPipeline) {
			return nil, err
		}
		log.Warn("saved pipeline is corrupt, starting with an empty draft", "error", err)
	}
	return s, nil
}

// structValidator plugs go-playground/validator into fiber's binder.
type structValidator struct {
	validate *validator.Validate
}

func (v *structValidator) Validate(out any) error { return v.validate.Struct(out) }

func newApp(s *server) *fiber.App {
	app := fiber.New(fiber.Config{
		StructValidator: &structValidator{validate: validator.New()},
	})
	app.Use(requestLogger(s.log))

	// ── Schema ────────────────────────────────────────────────────────
	app.Post("/schema", func(c fiber.Ctx) error {
		if err := s.store.CreateSchema(c.Context()); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "schema created"})
	})

	app.Delete("/schema", func(c fiber.Ctx) error {
		if err := s.store.DropSchema(c.Context()); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "schema dropped"})
	})

	// ── Tools ─────────────────────────────────────────────────────────
	app.Get("/tools", func(c fiber.Ctx) error {
		defs, err := s.tools.ListTools(c.Context())
		if err != nil {
			return fail(c, err)
		}
		out := make([]toolView, 0, len(defs))
		for i := range defs {
			out = append(out, newToolView(&defs[i]))
		}
		return c.JSON(out)
	})

	app.Get("/tools/:name", func(c fiber.Ctx) error {
		def, err := s.tools.GetTool(c.Context(), c.Params("name"))
		if err != nil {
			return fail(c, err)
		}
		if def == nil {
			return c.Status(404).JSON(fiber.Map{"error": "tool not found", "kind": "UnknownTool"})
		}
		return c.JSON(newToolView(def))
	})

	// ── Saved pipeline ────────────────────────────────────────────────
	app.Get("/pipeline", func(c fiber.Ctx) error {
		g, err := pipeline.LoadPipeline(c.Context(), s.store)
		s.metrics.recordPersistence("load", ignoreNoPipeline(err))
		if errors.Is(err, pipeline.ErrNoPipeline) {
			return c.Status(404).JSON(fiber.Map{"error": "no pipeline yet", "kind": "NoPipeline"})
		}
		if err != nil {
			return fail(c, err)
		}
		doc, err := pipeline.Snapshot(g)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(doc)
	})

	app.Put("/pipeline", func(c fiber.Ctx) error {
		g, err := pipeline.Load(c.Body())
		if err != nil {
			return fail(c, err)
		}
		err = pipeline.SavePipeline(c.Context(), s.store, g)
		s.metrics.recordPersistence("save", err)
		if err != nil {
			return fail(c, err)
		}
		s.log.Info("pipeline replaced", "nodes", g.NodeCount(), "edges", g.EdgeCount())
		return c.SendStatus(204)
	})

	app.Post("/pipeline/validate", func(c fiber.Ctx) error {
		g, err := pipeline.Load(c.Body())
		var corrupt *pipeline.CorruptPipelineError
		if errors.As(err, &corrupt) {
			return c.JSON(validationResult(corrupt.Violations))
		}
		if err != nil {
			return fail(c, err)
		}
		violations, err := pipeline.ValidateTools(c.Context(), g, s.tools)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(validationResult(violations))
	})

	// ── Draft ─────────────────────────────────────────────────────────
	app.Get("/draft", func(c fiber.Ctx) error {
		doc, err := s.draft.document()
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(doc)
	})

	app.Post("/draft/nodes", func(c fiber.Ctx) error {
		var req addNodeRequest
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body", "kind": "InvalidBody"})
		}
		var id string
		err := s.draft.with(func(g *pipeline.Graph) error {
			var err error
			id, err = s.editor.AddNode(c.Context(), g, req.ToolName, req.Position)
			return err
		})
		s.metrics.recordEdit("add_node", err)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(201).JSON(fiber.Map{"id": id})
	})

	app.Patch("/draft/nodes/:id", func(c fiber.Ctx) error {
		var req moveNodeRequest
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body", "kind": "InvalidBody"})
		}
		err := s.draft.with(func(g *pipeline.Graph) error {
			return s.editor.MoveNode(g, c.Params("id"), *req.Position)
		})
		s.metrics.recordEdit("move_node", err)
		if err != nil {
			return fail(c, err)
		}
		return c.SendStatus(204)
	})

	app.Delete("/draft/nodes/:id", func(c fiber.Ctx) error {
		_ = s.draft.with(func(g *pipeline.Graph) error {
			s.editor.RemoveNode(g, c.Params("id"))
			return nil
		})
		s.metrics.recordEdit("remove_node", nil)
		return c.SendStatus(204)
	})

	app.Post("/draft/edges", func(c fiber.Ctx) error {
		var req connectRequest
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body", "kind": "InvalidBody"})
		}
		var id string
		err := s.draft.with(func(g *pipeline.Graph) error {
			var err error
			id, err = s.editor.AddConnection(g, pipeline.Connection(req))
			return err
		})
		s.metrics.recordEdit("add_connection", err)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(201).JSON(fiber.Map{"id": id})
	})

	app.Delete("/draft/edges/:id", func(c fiber.Ctx) error {
		_ = s.draft.with(func(g *pipeline.Graph) error {
			s.editor.RemoveConnection(g, c.Params("id"))
			return nil
		})
		s.metrics.recordEdit("remove_connection", nil)
		return c.SendStatus(204)
	})

	app.Post("/draft/save", func(c fiber.Ctx) error {
		if err := s.draft.save(c.Context()); err != nil {
			return fail(c, err)
		}
		s.log.Info("draft saved")
		return c.SendStatus(204)
	})

	app.Post("/draft/reset", func(c fiber.Ctx) error {
		if err := s.draft.reload(c.Context()); err != nil {
			return fail(c, err)
		}
		doc, err := s.draft.document()
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(doc)
	})

	// ── Metrics ───────────────────────────────────────────────────────
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	return app
}

type addNodeRequest struct {
	ToolName string            `json:"toolName" validate:"required"`
	Position pipeline.Position `json:"position"`
}

type moveNodeRequest struct {
	Position *pipeline.Position `json:"position" validate:"required"`
}

type connectRequest struct {
	SourceNodeID string `json:"sourceNodeId" validate:"required"`
	SourcePort   string `json:"sourcePort" validate:"required"`
	TargetNodeID string `json:"targetNodeId" validate:"required"`
	TargetPort   string `json:"targetPort" validate:"required"`
}

type toolView struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Category    pipeline.Category      `json:"category"`
	Inputs      []pipeline.SchemaField `json:"inputs"`
	Outputs     []pipeline.SchemaField `json:"outputs"`
	Config      pipeline.ToolConfig    `json:"config,omitempty"`
}

func newToolView(def *pipeline.ToolDefinition) toolView {
	v := toolView{
		Name:        def.Name,
		Description: def.Description,
		Category:    def.Category,
		Inputs:      def.InputSchema,
		Outputs:     def.OutputSchema,
		Config:      def.Config,
	}
	if v.Inputs == nil {
		v.Inputs = []pipeline.SchemaField{}
	}
	if v.Outputs == nil {
		v.Outputs = []pipeline.SchemaField{}
	}
	return v
}

func validationResult(violations []pipeline.Violation) fiber.Map {
	if violations == nil {
		violations = []pipeline.Violation{}
	}
	return fiber.Map{"valid": len(violations) == 0, "violations": violations}
}

// errorStatus maps an error to an HTTP status and the kind reported to
// clients.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, pipeline.ErrUnknownTool):
		return 404, "UnknownTool"
	case errors.Is(err, pipeline.ErrNodeNotFound):
		return 404, "NodeNotFound"
	case errors.Is(err, pipeline.ErrNoPipeline):
		return 404, "NoPipeline"
	case errors.Is(err, pipeline.ErrInvalidEndpoint):
		return 422, "InvalidEndpoint"
	case errors.Is(err, pipeline.ErrSelfLoop):
		return 422, "SelfLoop"
	case errors.Is(err, pipeline.ErrTypeMismatch):
		return 422, "TypeMismatch"
	case errors.Is(err, pipeline.ErrPortOccupied):
		return 422, "PortOccupied"
	case errors.Is(err, pipeline.ErrCycleDetected):
		return 422, "CycleDetected"
	case errors.Is(err, pipeline.ErrDefinition):
		return 422, "InvalidToolDefinition"
	case errors.Is(err, pipeline.ErrMalformedDocument):
		return 400, "MalformedDocument"
	case errors.Is(err, pipeline.ErrCorruptPipeline):
		return 422, "CorruptPipeline"
	}
	return 500, "Internal"
}

func fail(c fiber.Ctx, err error) error {
	status, kind := errorStatus(err)
	body := fiber.Map{"error": err.Error(), "kind": kind}
	var corrupt *pipeline.CorruptPipelineError
	if errors.As(err, &corrupt) {
		body["violations"] = corrupt.Violations
	}
	return c.Status(status).JSON(body)
}
