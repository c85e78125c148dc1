package controllers

import (
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nimbuscrm/crm_backend/config"
	"github.com/nimbuscrm/crm_backend/models"
	"github.com/nimbuscrm/crm_backend/utils"
	"github.com/sirupsen/logrus"
)

func CreateProduct(c *gin.Context) {
	var input models.NewProduct
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	product, err := models.CreateProduct(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, "product created", product)
}

func UpdateProduct(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "invalid id")
		return
	}
	var input models.NewProduct
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	product, err := models.UpdateProduct(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "product updated", product)
}

func DeleteProduct(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "invalid id")
		return
	}
	product, err := models.DeleteProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "product deleted", product)
}

func GetProduct(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "invalid id")
		return
	}
	product, err := models.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "", product)
}

func GetProducts(c *gin.Context) {
	var name *string
	if v := c.Query("name"); v != "" {
		name = &v
	}
	products, err := models.GetProducts(c.Request.Context(), name)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "", products)
}

// UploadProductImage accepts a multipart image, stores it with a thumbnail in
// cloud storage and records the object keys on the product.
func UploadProductImage(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			respondBadRequest(c, "invalid id")
			return
		}

		fileHeader, err := c.FormFile("image")
		if err != nil {
			respondBadRequest(c, "image file is required")
			return
		}

		contentType := fileHeader.Header.Get("Content-Type")
		if !strings.HasPrefix(contentType, "image/") {
			respondBadRequest(c, "only image uploads are accepted")
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

		ext := path.Ext(fileHeader.Filename)
		objectKey := fmt.Sprintf("products/%d/%s%s", id, utils.GenerateUniqueFilename(), ext)

		thumbnailKey, err := utils.UploadImageWithThumbnail(c.Request.Context(), objectKey, data, contentType)
		if err != nil {
			config.LogError(logger, "productController.go", "UploadProductImage", "upload image", objectKey, err)
			respondError(c, err)
			return
		}

		product, err := models.AttachProductImage(c.Request.Context(), id, objectKey, thumbnailKey)
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, "product image uploaded", product)
	}
}
