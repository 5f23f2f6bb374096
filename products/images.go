package products

import (
	"net/http"
	"os"
	"path/filepath"

	"fabritrack/apperr"
	"fabritrack/utils"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const productPicDir = "./static/productpic"

// UploadImage attaches a product photo. The original is saved as-is
// and a 300px-wide thumbnail is generated alongside it.
func (s *Service) UploadImage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := primitive.ObjectIDFromHex(ps.ByName("id"))
	if err != nil {
		utils.RespondAppError(w, apperr.New(apperr.InvalidArgument, "Invalid product id"))
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		utils.RespondAppError(w, apperr.New(apperr.InvalidArgument, "Invalid form data"))
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		utils.RespondAppError(w, apperr.New(apperr.InvalidArgument, "Image file missing"))
		return
	}
	defer file.Close()

	ext := filepath.Ext(header.Filename)
	if ext != ".jpg" && ext != ".jpeg" && ext != ".png" && ext != ".webp" {
		utils.RespondAppError(w, apperr.New(apperr.InvalidArgument, "Unsupported file type"))
		return
	}

	img, err := imaging.Decode(file)
	if err != nil {
		utils.RespondAppError(w, apperr.New(apperr.InvalidArgument, "Failed to decode image"))
		return
	}

	uniqueID := uuid.New().String()
	fileName := uniqueID + ".jpg"
	thumbDir := filepath.Join(productPicDir, "thumb")
	if err := os.MkdirAll(thumbDir, 0o755); err != nil {
		utils.RespondAppError(w, err)
		return
	}

	if err := imaging.Save(img, filepath.Join(productPicDir, fileName)); err != nil {
		utils.RespondAppError(w, err)
		return
	}
	thumb := imaging.Resize(img, 300, 0, imaging.Lanczos)
	if err := imaging.Save(thumb, filepath.Join(thumbDir, fileName)); err != nil {
		utils.RespondAppError(w, err)
		return
	}

	imagePath := "/static/productpic/" + fileName
	thumbPath := "/static/productpic/thumb/" + fileName
	matched, err := s.Store.SetImage(r.Context(), id, imagePath, thumbPath)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}
	if !matched {
		utils.RespondAppError(w, apperr.New(apperr.NotFound, "Product not found"))
		return
	}
	s.Cache.Del(r.Context(), featuredCacheKey)

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success":   true,
		"image":     imagePath,
		"thumbnail": thumbPath,
	})
}
