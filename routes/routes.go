package routes

import (
	"log"
	"os"

	controller "taxnexy/controllers"
	"taxnexy/drip"
	"taxnexy/engine"
	"taxnexy/middleware"
	"taxnexy/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"
)

// SetupRoutes wires every route group. The sequencer is shared with
// the background worker so both paths go through the same run lock.
func SetupRoutes(app *fiber.App, db *gorm.DB, storage utils.ObjectStorage, mail *utils.MailService, seq *drip.Sequencer) {
	requestLogger := log.New(os.Stdout, "REQUEST: ", log.Ldate|log.Ltime|log.Lshortfile)
	uploadLogger := log.New(os.Stdout, "UPLOAD: ", log.Ldate|log.Ltime|log.Lshortfile)
	intakeLogger := log.New(os.Stdout, "INTAKE: ", log.Ldate|log.Ltime|log.Lshortfile)
	dripLogger := log.New(os.Stdout, "DRIP: ", log.LstdFlags)
	documentLogger := log.New(os.Stdout, "DOCUMENT: ", log.LstdFlags)

	eng := engine.NewEngine(engine.NewGormStore(db), requestLogger)
	sms := utils.NewSMSService(requestLogger)

	requestController := controller.NewRequestController(db, eng, mail, sms, requestLogger)
	uploadController := controller.NewUploadController(eng, storage, uploadLogger)
	intakeController := controller.NewIntakeController(db, storage, mail, intakeLogger)
	dripController := controller.NewDripController(seq, dripLogger)
	documentController := controller.NewDocumentController(db, storage, documentLogger)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Public token-addressed endpoints. No auth; the token is the
	// capability. The limiter is attached per route so its key sees
	// the resolved :token param.
	rl := middleware.PublicRateLimiter()
	accessLog := logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	})
	app.Get("/r/:token", accessLog, rl, uploadController.GetRequestStatus)
	app.Post("/r/:token/items/:itemID", accessLog, rl, uploadController.UploadItem)
	app.Get("/i/:token", accessLog, rl, intakeController.GetIntakeLink)
	app.Post("/i/:token", accessLog, rl, intakeController.SubmitIntake)
	app.Post("/i/:token/documents", accessLog, rl, intakeController.IntakeUpload)

	// Scheduler trigger, shared-secret auth instead of staff JWT.
	// Registered before the Protected group so the JWT guard on the
	// /api/v1 prefix never sees these routes.
	app.Post("/api/v1/drip/run", middleware.CronAuth(), dripController.RunSequencer)
	app.Get("/api/v1/drip/run", middleware.CronAuth(), dripController.GetDueSummary)

	// Staff API
	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	requests := api.Group("/document-requests")
	requests.Post("/", requestController.CreateDocumentRequest)
	requests.Get("/", requestController.ListDocumentRequests)
	requests.Get("/:id", requestController.GetDocumentRequest)
	requests.Post("/:id/remind", requestController.RemindDocumentRequest)

	intake := api.Group("/intake-links")
	intake.Post("/", intakeController.CreateIntakeLink)

	documents := api.Group("/documents")
	documents.Get("/", documentController.ListDocuments)
	documents.Get("/:id/download", documentController.DownloadDocument)
	documents.Delete("/:id", documentController.DeleteDocument)

	enrollments := api.Group("/drip/enrollments")
	enrollments.Post("/", dripController.StartEnrollment)
	enrollments.Post("/:id/pause", dripController.PauseEnrollment)
	enrollments.Post("/:id/resume", dripController.ResumeEnrollment)
	enrollments.Post("/:id/unsubscribe", dripController.UnsubscribeEnrollment)

	// 404 fallback
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Not found",
		})
	})
}
