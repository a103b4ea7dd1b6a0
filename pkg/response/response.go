package response

import (
	"errors"
	"net/http"

	appErr "blackjack-service/pkg/errors"

	"github.com/gin-gonic/gin"
)

type Body struct {
	Code int         `json:"code"`
	Data interface{} `json:"data"`
	Msg  string      `json:"msg"`
}

func Success(c *gin.Context, data interface{}) {
	JSON(c, http.StatusOK, data, "")
}

func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data, "")
}

func Error(c *gin.Context, status int, msg string) {
	JSON(c, status, gin.H{}, msg)
}

// FromError maps service errors onto HTTP statuses.
func FromError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, appErr.ErrRoomNotFound), errors.Is(err, appErr.ErrAccountNotFound):
		status = http.StatusNotFound
	case errors.Is(err, appErr.ErrTokenRequired), errors.Is(err, appErr.ErrNameRequired),
		errors.Is(err, appErr.ErrInvalidProfile), errors.Is(err, appErr.ErrInvalidWalletAmount),
		errors.Is(err, appErr.ErrInsufficientBalance), errors.Is(err, appErr.ErrUnsupportedAction):
		status = http.StatusBadRequest
	case errors.Is(err, appErr.ErrUnauthorized), errors.Is(err, appErr.ErrInvalidSessionToken):
		status = http.StatusUnauthorized
	case errors.Is(err, appErr.ErrRoomBusy):
		status = http.StatusConflict
	default:
		Error(c, status, "internal error")
		return
	}
	Error(c, status, err.Error())
}

func JSON(c *gin.Context, status int, data interface{}, msg string) {
	if data == nil {
		data = gin.H{}
	}
	c.JSON(status, Body{
		Code: status,
		Data: data,
		Msg:  msg,
	})
}
