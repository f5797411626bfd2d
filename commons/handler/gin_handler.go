package handler

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"jobsync/commons/error_handler"
	"jobsync/commons/response"
	"jobsync/internal/logger"

	"github.com/gin-gonic/gin"
)

type ServiceFunc[InputDto any, OutputDto any] func(
	ctx context.Context,
	ioutil *RequestIo[InputDto],
) (OutputDto, *error_handler.ErrorCollection)

func HandleFunc[InputDto any, OutputDto any](
	deps HandlerDependencies,
	serviceFunc ServiceFunc[InputDto, OutputDto],
) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		log := deps.Logger.WithContext(ctx)

		ioutil := BuildRequestIo[InputDto](c)

		if hasBody(c.Request.Method) {
			bodyBytes, err := io.ReadAll(c.Request.Body)
			if err != nil {
				log.Error("unable to read request body", logger.Error(err))
				SendErrorResponse(c, *new(OutputDto), error_handler.NewErrorCollection().
					AddError(error_handler.CodeInternalServerError, "Unable to parse request body", nil))
				return
			}
			ioutil.RawBody = bodyBytes

			if len(bodyBytes) > 0 {
				// restore the body for ShouldBindJSON
				c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

				if err := c.ShouldBindJSON(&ioutil.Body); err != nil {
					log.Warn("unable to bind request body",
						logger.String("path", c.FullPath()),
						logger.Error(err))
					SendErrorResponse(c, *new(OutputDto), error_handler.NewErrorCollection().
						AddError(error_handler.CodeValidationError, err.Error(), nil))
					return
				}
			}
		}

		outputDto, errorCollection := serviceFunc(ctx, ioutil)

		if errorCollection != nil && errorCollection.HasErrors() {
			SendErrorResponse(c, outputDto, errorCollection)
		} else {
			SendSuccessResponse(c, outputDto)
		}
	}
}

func hasBody(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}

func SendSuccessResponse[T any](c *gin.Context, data T) {
	c.JSON(http.StatusOK, response.Success(data, c.GetString(requestIDKey)))
}

func SendErrorResponse[T any](c *gin.Context, data T, errorCollection *error_handler.ErrorCollection) {
	c.JSON(errorCollection.GetHTTPStatus(),
		response.Failure(data, errorCollection.GetErrors(), c.GetString(requestIDKey)))
}
