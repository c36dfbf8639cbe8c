package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/ebooklib/internal/auth"
	"github.com/mrlokans/ebooklib/internal/database/reviews"
	"github.com/mrlokans/ebooklib/internal/entities"
)

const maxReviewPage = 100

// ReviewsController handles ratings and reviews of an e-book.
type ReviewsController struct {
	store  ReviewStore
	ebooks EbookReader
}

func NewReviewsController(store ReviewStore, ebooks EbookReader) *ReviewsController {
	return &ReviewsController{store: store, ebooks: ebooks}
}

type createReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// ensureEbook responds with 404 and returns false when the e-book is missing.
func (rc *ReviewsController) ensureEbook(c *gin.Context) (uint, bool) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return 0, false
	}
	if _, err := rc.ebooks.Get(id); err != nil {
		respondEbookError(c, err, "get ebook")
		return 0, false
	}
	return id, true
}

// List handles GET /ebooks/:id/reviews.
func (rc *ReviewsController) List(c *gin.Context) {
	id, ok := rc.ensureEbook(c)
	if !ok {
		return
	}
	skip, limit, ok := parsePage(c, maxReviewPage, maxReviewPage)
	if !ok {
		return
	}
	if limit == 0 {
		respondEmptyPage(c)
		return
	}
	list, err := rc.store.ListForEbook(id, skip, limit)
	if err != nil {
		respondInternalError(c, err, "list reviews")
		return
	}
	c.JSON(http.StatusOK, nonNil(list))
}

// Create handles POST /ebooks/:id/reviews.
func (rc *ReviewsController) Create(c *gin.Context) {
	id, ok := rc.ensureEbook(c)
	if !ok {
		return
	}
	var req createReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if req.Rating < entities.MinRating || req.Rating > entities.MaxRating {
		respondValidation(c, fmt.Sprintf("rating must be between %d and %d", entities.MinRating, entities.MaxRating),
			gin.H{"rating": req.Rating})
		return
	}

	user := auth.CurrentUser(c)
	review := &entities.Review{
		Rating:  req.Rating,
		Comment: strings.TrimSpace(req.Comment),
		UserID:  user.ID,
		EbookID: id,
	}
	if err := rc.store.Create(review); err != nil {
		if errors.Is(err, reviews.ErrAlreadyReviewed) {
			respondBadRequest(c, reviews.ErrAlreadyReviewed.Error())
			return
		}
		respondInternalError(c, err, "create review")
		return
	}
	review.User = user
	c.JSON(http.StatusCreated, review)
}

// Rating handles GET /ebooks/:id/rating.
func (rc *ReviewsController) Rating(c *gin.Context) {
	id, ok := rc.ensureEbook(c)
	if !ok {
		return
	}
	summary, err := rc.store.Summary(id)
	if err != nil {
		respondInternalError(c, err, "rating summary")
		return
	}
	c.JSON(http.StatusOK, summary)
}
