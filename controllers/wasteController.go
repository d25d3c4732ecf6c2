package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"safasajha-be/gcs"
	"safasajha-be/models"
	"safasajha-be/services"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type reportService interface {
	Create(ctx context.Context, actor services.Actor, in services.CreateReportInput) (*models.WasteReport, error)
	Get(ctx context.Context, actor services.Actor, id primitive.ObjectID) (*models.WasteReport, error)
	ListOwn(ctx context.Context, actor services.Actor, status models.ReportStatus, typ models.WasteType) ([]models.WasteReport, error)
	ListCompleted(ctx context.Context, actor services.Actor) ([]models.WasteReport, error)
	ListAll(ctx context.Context, actor services.Actor, f models.ReportFilter) ([]models.WasteReport, error)
	ChangeStatus(ctx context.Context, actor services.Actor, id primitive.ObjectID, status models.ReportStatus, expected *int64) (*models.WasteReport, error)
	Assign(ctx context.Context, actor services.Actor, id, staffID primitive.ObjectID, expected *int64) (*models.WasteReport, error)
	Edit(ctx context.Context, actor services.Actor, id primitive.ObjectID, patch services.ReportPatch) (*models.WasteReport, error)
	Delete(ctx context.Context, actor services.Actor, id primitive.ObjectID) error
	SubmitFeedback(ctx context.Context, actor services.Actor, id primitive.ObjectID, in services.FeedbackInput) (*models.WasteReport, error)
	AttachImages(ctx context.Context, actor services.Actor, id primitive.ObjectID, urls ...string) (*models.WasteReport, error)
	UserStats(ctx context.Context, actor services.Actor) (*services.UserReportStats, error)
}

// ImageUploader stores an image under folder and returns its public URL.
type ImageUploader interface {
	Upload(ctx context.Context, r io.Reader, contentType, folder string) (string, error)
}

type WasteController struct {
	reports  reportService
	uploader ImageUploader
	timeout  time.Duration
}

// NewWasteController takes a nil uploader when image storage is not configured.
func NewWasteController(reports reportService, uploader ImageUploader, timeout time.Duration) *WasteController {
	return &WasteController{reports: reports, uploader: uploader, timeout: timeout}
}

// CreateReport handles POST /api/waste/report
func (wc *WasteController) CreateReport(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var input services.CreateReportInput
	if !bindJSON(c, &input) {
		return
	}
	ctx, cancel := withTimeout(c, wc.timeout)
	defer cancel()

	report, err := wc.reports.Create(ctx, a, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

func (wc *WasteController) ListOwn(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(c, wc.timeout)
	defer cancel()

	reports, err := wc.reports.ListOwn(ctx, a, models.ReportStatus(c.Query("status")), models.WasteType(c.Query("type")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

func (wc *WasteController) ListCompleted(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(c, wc.timeout)
	defer cancel()

	reports, err := wc.reports.ListCompleted(ctx, a)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

func (wc *WasteController) Stats(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(c, wc.timeout)
	defer cancel()

	stats, err := wc.reports.UserStats(ctx, a)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListAll is the admin listing with status, type and urgency filters.
func (wc *WasteController) ListAll(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(c, wc.timeout)
	defer cancel()

	reports, err := wc.reports.ListAll(ctx, a, models.ReportFilter{
		Status:  models.ReportStatus(c.Query("status")),
		Type:    models.WasteType(c.Query("type")),
		Urgency: models.Urgency(c.Query("urgency")),
		Limit:   limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

func (wc *WasteController) GetReport(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	ctx, cancel := withTimeout(c, wc.timeout)
	defer cancel()

	report, err := wc.reports.Get(ctx, a, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (wc *WasteController) UpdateReport(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	expected, ok := ifMatch(c)
	if !ok {
		return
	}
	var patch services.ReportPatch
	if !bindJSON(c, &patch) {
		return
	}
	if expected != nil {
		patch.Version = expected
	}
	ctx, cancel := withTimeout(c, wc.timeout)
	defer cancel()

	report, err := wc.reports.Edit(ctx, a, id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (wc *WasteController) DeleteReport(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	ctx, cancel := withTimeout(c, wc.timeout)
	defer cancel()

	if err := wc.reports.Delete(ctx, a, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "Report deleted successfully"})
}

type statusInput struct {
	Status  models.ReportStatus `json:"status"`
	Version *int64              `json:"version"`
}

func (wc *WasteController) UpdateStatus(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	expected, ok := ifMatch(c)
	if !ok {
		return
	}
	var input statusInput
	if !bindJSON(c, &input) {
		return
	}
	if expected == nil {
		expected = input.Version
	}
	ctx, cancel := withTimeout(c, wc.timeout)
	defer cancel()

	report, err := wc.reports.ChangeStatus(ctx, a, id, input.Status, expected)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

type assignInput struct {
	AssignedTo string `json:"assignedTo"`
	Version    *int64 `json:"version"`
}

func (wc *WasteController) Assign(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	expected, ok := ifMatch(c)
	if !ok {
		return
	}
	var input assignInput
	if !bindJSON(c, &input) {
		return
	}
	staffID, err := primitive.ObjectIDFromHex(input.AssignedTo)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"message": "Staff assignment is required",
			"errors":  []services.FieldError{{Field: "assignedTo", Message: "Staff assignment is required"}},
		})
		return
	}
	if expected == nil {
		expected = input.Version
	}
	ctx, cancel := withTimeout(c, wc.timeout)
	defer cancel()

	report, err := wc.reports.Assign(ctx, a, id, staffID, expected)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (wc *WasteController) SubmitFeedback(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	var input services.FeedbackInput
	if !bindJSON(c, &input) {
		return
	}
	ctx, cancel := withTimeout(c, wc.timeout)
	defer cancel()

	report, err := wc.reports.SubmitFeedback(ctx, a, id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// UploadImage stores the multipart "image" file and appends its URL to the report.
func (wc *WasteController) UploadImage(c *gin.Context) {
	if wc.uploader == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"message": "Image uploads are not configured"})
		return
	}
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := objectID(c, "id")
	if !ok {
		return
	}

	header, err := c.FormFile("image")
	if err != nil {
		badRequest(c, "Image file is required")
		return
	}
	if header.Size > gcs.MaxImageSize {
		badRequest(c, "Image must be at most 5 MB")
		return
	}
	file, err := header.Open()
	if err != nil {
		badRequest(c, "Image file is unreadable")
		return
	}
	defer file.Close()

	sniff := make([]byte, 512)
	n, _ := io.ReadFull(file, sniff)
	contentType := http.DetectContentType(sniff[:n])
	if _, ok := gcs.Extension(contentType); !ok {
		badRequest(c, "Only PNG, JPEG and GIF images are allowed")
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		badRequest(c, "Image file is unreadable")
		return
	}

	ctx, cancel := withTimeout(c, wc.timeout*6)
	defer cancel()

	// authorize before writing to the bucket
	if _, err := wc.reports.Get(ctx, a, id); err != nil {
		respondError(c, err)
		return
	}

	url, err := wc.uploader.Upload(ctx, file, contentType, "reports/"+id.Hex())
	if err != nil {
		if errors.Is(err, gcs.ErrUnsupportedType) {
			badRequest(c, "Only PNG, JPEG and GIF images are allowed")
			return
		}
		log.WithError(err).WithField("reportId", id.Hex()).Error("image upload failed")
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"message": "Failed to upload image"})
		return
	}

	report, err := wc.reports.AttachImages(ctx, a, id, url)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url, "report": report})
}
