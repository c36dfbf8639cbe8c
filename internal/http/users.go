package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/ebooklib/internal/auth"
)

// UsersController serves the current user's profile, favourites and history.
type UsersController struct {
	favourites FavouritesStore
	activity   ActivityStore
}

func NewUsersController(favourites FavouritesStore, activity ActivityStore) *UsersController {
	return &UsersController{favourites: favourites, activity: activity}
}

// Me handles GET /users/me.
func (uc *UsersController) Me(c *gin.Context) {
	c.JSON(http.StatusOK, auth.CurrentUser(c))
}

// Favourites handles GET /users/me/favorites.
func (uc *UsersController) Favourites(c *gin.Context) {
	books, err := uc.favourites.ListEbooks(auth.GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "list favourites")
		return
	}
	c.JSON(http.StatusOK, nonNil(books))
}

// History handles GET /users/me/history, newest first.
func (uc *UsersController) History(c *gin.Context) {
	entries, err := uc.activity.ListForUser(auth.GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "list history")
		return
	}
	c.JSON(http.StatusOK, nonNil(entries))
}
