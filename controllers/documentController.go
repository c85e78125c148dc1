package controllers

import (
	"fmt"
	"io"
	"path"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nimbuscrm/crm_backend/config"
	"github.com/nimbuscrm/crm_backend/models"
	"github.com/nimbuscrm/crm_backend/utils"
	"github.com/sirupsen/logrus"
)

var attachableReferenceTypes = map[models.ReferenceType]bool{
	models.ReferenceTypeSalesInvoice:    true,
	models.ReferenceTypeBill:            true,
	models.ReferenceTypePayment:         true,
	models.ReferenceTypeSalesCreditNote: true,
	models.ReferenceTypeBillDebitNote:   true,
}

// UploadDocument attaches a file to a ledger document. The object is written
// to cloud storage first; the metadata row follows outside any posting
// transaction so file I/O never blocks ledger writes.
func UploadDocument(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		refType := models.ReferenceType(c.Param("refType"))
		if !attachableReferenceTypes[refType] {
			respondBadRequest(c, "unsupported reference type")
			return
		}
		refId, err := strconv.Atoi(c.Param("refId"))
		if err != nil {
			respondBadRequest(c, "invalid reference id")
			return
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			respondBadRequest(c, "file is required")
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			respondError(c, err)
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			respondError(c, err)
			return
		}

		contentType := fileHeader.Header.Get("Content-Type")
		ext := path.Ext(fileHeader.Filename)
		objectKey := fmt.Sprintf("documents/%s/%d/%s%s", refType, refId, utils.GenerateUniqueFilename(), ext)

		if err := utils.UploadBytesToGCS(c.Request.Context(), objectKey, data, contentType); err != nil {
			config.LogError(logger, "documentController.go", "UploadDocument", "upload", objectKey, err)
			respondError(c, err)
			return
		}

		doc := models.Document{
			ReferenceType: refType,
			ReferenceID:   refId,
			ObjectKey:     objectKey,
			FileName:      fileHeader.Filename,
			ContentType:   contentType,
			SizeBytes:     fileHeader.Size,
		}
		db := config.GetDB()
		if err := models.CreateDocument(db, c.Request.Context(), &doc); err != nil {
			respondError(c, err)
			return
		}
		respondCreated(c, "document uploaded", doc)
	}
}

func GetDocuments(c *gin.Context) {
	refType := models.ReferenceType(c.Param("refType"))
	refId, err := strconv.Atoi(c.Param("refId"))
	if err != nil {
		respondBadRequest(c, "invalid reference id")
		return
	}
	docs, err := models.GetDocuments(c.Request.Context(), refType, refId)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "", docs)
}

func DeleteDocument(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "invalid id")
		return
	}
	if err := models.DeleteDocument(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "document deleted", nil)
}
