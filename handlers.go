package main

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"fapiaobox/models"
	"fapiaobox/pkg/batch"
)

func setupRoutes(r *gin.Engine) {
	r.POST("/register", registerHandler)
	r.POST("/login", loginHandler)
	api := r.Group("/api")
	api.Use(jwtAuthMiddleware())
	api.GET("/me", meHandler)
	api.POST("/upload", uploadInvoiceHandler)
	api.GET("/invoices/:type", listInvoicesHandler)
	api.GET("/recycle-bin/:type", listRecycleBinHandler)
	api.POST("/invoices/delete", batchDeleteHandler)
	api.POST("/recycle-bin/purge", batchPurgeHandler)
	api.POST("/invoices/download", batchDownloadHandler)
	api.GET("/download/:id", downloadPdfHandler)
}

func jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			c.Abort()
			return
		}
		tokenString := authHeader[7:]
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidKeyType
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			c.Abort()
			return
		}
		username, _ := claims["username"].(string)
		c.Set("username", username)
		c.Next()
	}
}

func meHandler(c *gin.Context) {
	usernameVal, _ := c.Get("username")
	if usernameVal == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "context missing username"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"username": usernameVal.(string)})
}

func registerHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := RegisterUser(req.Username, req.Password); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user registered successfully"})
}

func loginHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := Authenticate(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": user.Username,
		"exp":      time.Now().Add(time.Hour * 24).Unix(),
	})
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "login successful", "token": tokenString})
}

// uploadInvoiceHandler accepts a multipart PDF plus invoice type and purchaser
// name, runs the ingestion pipeline, and returns the stored record. A record
// is created even when extraction comes back empty.
func uploadInvoiceHandler(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file missing"})
		return
	}
	if !strings.HasSuffix(strings.ToLower(file.Filename), ".pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only PDF files are accepted"})
		return
	}
	if file.Size > maxUploadBytes() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("file too large (max %dMB)", maxUploadBytes()/(1024*1024))})
		return
	}
	invoiceType := models.InvoiceType(c.PostForm("type"))
	purchaser := c.PostForm("purchaser_name")
	if !models.ValidType(invoiceType) || strings.TrimSpace(purchaser) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type and purchaser_name are required"})
		return
	}
	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read upload failed"})
		return
	}
	defer src.Close()
	rec, err := ingestSvc.IngestPDF(src, file.Filename, invoiceType, purchaser)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func listInvoicesHandler(c *gin.Context) {
	listByState(c, models.StateActive)
}

func listRecycleBinHandler(c *gin.Context) {
	invoiceType := models.InvoiceType(c.Param("type"))
	if !models.ValidType(invoiceType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown invoice type"})
		return
	}
	recs, err := invStore.ListRecycleBin(invoiceType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, recs)
}

func listByState(c *gin.Context, state models.State) {
	invoiceType := models.InvoiceType(c.Param("type"))
	if !models.ValidType(invoiceType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown invoice type"})
		return
	}
	recs, err := invStore.List(invoiceType, state)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, recs)
}

type batchRequest struct {
	IDs   []uint             `json:"ids" binding:"required"`
	Type  models.InvoiceType `json:"type" binding:"required"`
	State models.State       `json:"state"`
}

func (r *batchRequest) view(defaultState models.State) (batch.View, error) {
	if !models.ValidType(r.Type) {
		return batch.View{}, fmt.Errorf("unknown invoice type")
	}
	state := r.State
	if state == "" {
		state = defaultState
	}
	if !models.ValidState(state) {
		return batch.View{}, fmt.Errorf("unknown state")
	}
	return batch.View{Type: r.Type, State: state}, nil
}

func batchDeleteHandler(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	view, err := req.view(models.StateActive)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	results := invCoordinator.Delete(req.IDs, view)
	c.JSON(http.StatusOK, gin.H{"results": results, "deleted": countOK(results)})
}

func batchPurgeHandler(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.State = models.StateRecycled // purge only makes sense from the bin
	view, err := req.view(models.StateRecycled)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	results := invCoordinator.Purge(req.IDs, view)
	c.JSON(http.StatusOK, gin.H{"results": results, "purged": countOK(results)})
}

// batchDownloadHandler bundles the requested PDFs into a zip. Ids whose
// binary is missing are reported in the X-Failed-Ids header; the archive
// still carries the rest.
func batchDownloadHandler(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	view, err := req.view(models.StateActive)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var buf bytes.Buffer
	results, err := invCoordinator.Download(req.IDs, view, &buf)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "bundle failed"})
		return
	}
	if countOK(results) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no downloadable invoices in selection", "results": results})
		return
	}
	if failed := failedIDs(results); failed != "" {
		c.Header("X-Failed-Ids", failed)
	}
	c.Header("Content-Disposition", `attachment; filename="invoices.zip"`)
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
}

func downloadPdfHandler(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	rec, err := invStore.Get(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	full, err := invStore.PdfFile(rec)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "pdf binary missing"})
		return
	}
	name := rec.InvoiceNumber
	if name == "" {
		name = fmt.Sprintf("invoice-%d", rec.ID)
	}
	c.FileAttachment(full, name+".pdf")
}

func countOK(results []batch.Outcome) int {
	n := 0
	for _, r := range results {
		if r.OK {
			n++
		}
	}
	return n
}

func failedIDs(results []batch.Outcome) string {
	var parts []string
	for _, r := range results {
		if !r.OK {
			parts = append(parts, strconv.FormatUint(uint64(r.ID), 10))
		}
	}
	return strings.Join(parts, ",")
}

func maxUploadBytes() int64 {
	if v := os.Getenv("MAX_UPLOAD_MB"); v != "" {
		if mb, err := strconv.ParseInt(v, 10, 64); err == nil && mb > 0 {
			return mb * 1024 * 1024
		}
	}
	return 16 * 1024 * 1024
}
