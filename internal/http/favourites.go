package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/ebooklib/internal/auth"
	"github.com/mrlokans/ebooklib/internal/database/favourites"
)

// FavouritesController handles adding and removing favourite e-books.
type FavouritesController struct {
	store  FavouritesStore
	ebooks EbookReader
}

func NewFavouritesController(store FavouritesStore, ebooks EbookReader) *FavouritesController {
	return &FavouritesController{store: store, ebooks: ebooks}
}

// AddFavourite handles POST /ebooks/:id/favorite. Adding twice is not an error.
func (fc *FavouritesController) AddFavourite(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	book, err := fc.ebooks.Get(id)
	if err != nil {
		respondEbookError(c, err, "get ebook")
		return
	}
	if err := fc.store.Add(auth.GetUserID(c), id); err != nil {
		respondInternalError(c, err, "add favourite")
		return
	}
	c.JSON(http.StatusCreated, book)
}

// favouriteStatus is the body of GET /ebooks/:id/favorite.
type favouriteStatus struct {
	EbookID  uint `json:"ebook_id"`
	Favorite bool `json:"favorite"`
}

// Status handles GET /ebooks/:id/favorite for the current user.
func (fc *FavouritesController) Status(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if _, err := fc.ebooks.Get(id); err != nil {
		respondEbookError(c, err, "get ebook")
		return
	}
	favourite, err := fc.store.IsFavourite(auth.GetUserID(c), id)
	if err != nil {
		respondInternalError(c, err, "check favourite")
		return
	}
	c.JSON(http.StatusOK, favouriteStatus{EbookID: id, Favorite: favourite})
}

// RemoveFavourite handles DELETE /ebooks/:id/favorite.
func (fc *FavouritesController) RemoveFavourite(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := fc.store.Remove(auth.GetUserID(c), id); err != nil {
		if errors.Is(err, favourites.ErrNotFound) {
			respondNotFound(c, favourites.ErrNotFound.Error())
			return
		}
		respondInternalError(c, err, "remove favourite")
		return
	}
	c.Status(http.StatusNoContent)
}
