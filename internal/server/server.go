package server

import (
	"io"
	"log/slog"
	"mime/multipart"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jmartell/docintel/constants"
	"github.com/jmartell/docintel/internal/common"
	"github.com/jmartell/docintel/internal/export"
	"github.com/jmartell/docintel/internal/pipeline"
	"github.com/jmartell/docintel/internal/store"
)

// Server exposes the batch pipeline over HTTP: upload a set of documents,
// get back one record per document. Runs are synchronous; the response is the
// finished summary.
type Server struct {
	app      *fiber.App
	pipe     *pipeline.Controller
	exporter *export.Service
	store    *store.Store // nil when persistence is disabled
	cfg      common.ServerConfig
	log      *slog.Logger
}

func New(
	cfg common.ServerConfig,
	pipe *pipeline.Controller,
	exporter *export.Service,
	st *store.Store,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		pipe:     pipe,
		exporter: exporter,
		store:    st,
		cfg:      cfg,
		log:      logger,
	}

	app := fiber.New(fiber.Config{
		AppName:      "docintel",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // runs are synchronous
		BodyLimit:    cfg.MaxUploadMB * 1024 * 1024,
		ErrorHandler: s.errorHandler,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	api := app.Group("/api/v1")
	api.Get("/health", s.handleHealth)
	api.Post("/runs", s.handleCreateRun)
	api.Get("/runs", s.handleListRuns)
	api.Get("/runs/:id/documents", s.handleListRunDocuments)

	s.app = app
	return s
}

// Listen blocks serving on the configured address.
func (s *Server) Listen() error {
	s.log.Info("server.listen", "addr", s.cfg.Addr)
	return s.app.Listen(s.cfg.Addr)
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App returns the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "healthy",
		"time":   time.Now().UTC(),
	})
}

// recordResponse is the wire form of one document outcome.
type recordResponse struct {
	Filename        string             `json:"filename"`
	Status          string             `json:"status"`
	DetectedType    string             `json:"detected_type,omitempty"`
	TypeScore       float32            `json:"type_score"`
	ConfidenceScore float32            `json:"confidence_score"`
	Fields          map[string]any     `json:"fields,omitempty"`
	ErrorKind       string             `json:"error_kind,omitempty"`
	ErrorDetail     string             `json:"error_detail,omitempty"`
	Annotations     []common.ErrorKind `json:"annotations,omitempty"`
}

// handleCreateRun accepts a multipart upload under the "documents" field,
// runs the full pipeline, and returns the summary. With ?format=xlsx the
// response body is the summary workbook instead of JSON.
func (s *Server) handleCreateRun(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "failed to parse multipart form")
	}

	files := form.File["documents"]
	if len(files) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no files uploaded: use the 'documents' form field")
	}

	docs := make([]pipeline.RawDocument, 0, len(files))
	for _, fh := range files {
		b, err := readUpload(fh)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "failed to read upload "+fh.Filename)
		}
		docs = append(docs, pipeline.RawDocument{Filename: fh.Filename, Bytes: b})
	}

	summary, err := s.pipe.Run(c.Context(), docs, nil)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if s.store != nil {
		if err := s.store.SaveRun(c.Context(), summary); err != nil {
			s.log.Error("server.run_save_failed", "run_id", summary.RunID, "error", err)
		}
	}

	if c.Query("format") == "xlsx" {
		b, err := s.exporter.SummaryXLSX(summary)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to render workbook")
		}
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="Document_Summary.xlsx"`)
		return c.Send(b)
	}

	ok, failed, cancelled := summary.Counts()
	records := make([]recordResponse, 0, len(summary.Records))
	for _, rec := range summary.Records {
		rr := recordResponse{
			Filename:     rec.Filename,
			Status:       string(rec.Status),
			DetectedType: string(rec.DetectedType),
			TypeScore:    rec.TypeScore,
			ErrorKind:    string(rec.ErrorKind),
			ErrorDetail:  rec.ErrorDetail,
			Annotations:  rec.Annotations,
		}
		if rec.Result != nil {
			rr.ConfidenceScore = rec.Result.ConfidenceScore
			if rec.Status == constants.StatusSuccess {
				rr.Fields = rec.Result.Fields
			}
		}
		records = append(records, rr)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"run_id":      summary.RunID.String(),
		"started_at":  summary.StartedAt,
		"finished_at": summary.FinishedAt,
		"succeeded":   ok,
		"failed":      failed,
		"cancelled":   cancelled,
		"records":     records,
	})
}

func (s *Server) handleListRuns(c *fiber.Ctx) error {
	if s.store == nil {
		return fiber.NewError(fiber.StatusNotImplemented, "persistence is disabled: set STORE_DSN")
	}
	runs, err := s.store.ListRuns(c.Context(), c.QueryInt("limit", 50))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"runs": runs})
}

func (s *Server) handleListRunDocuments(c *fiber.Ctx) error {
	if s.store == nil {
		return fiber.NewError(fiber.StatusNotImplemented, "persistence is disabled: set STORE_DSN")
	}
	docs, err := s.store.ListRunDocuments(c.Context(), c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	if len(docs) == 0 {
		return fiber.NewError(fiber.StatusNotFound, "run not found")
	}
	return c.JSON(fiber.Map{"documents": docs})
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
