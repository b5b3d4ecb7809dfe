package handler

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"

	"blobapi/internal/codec"
	"blobapi/internal/service"
	"blobapi/internal/storage"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// listResponse wraps the names returned by FindAll.
type listResponse struct {
	Data []string `json:"data"`
}

// signedURLResponse is returned by GET /signed-url.
type signedURLResponse struct {
	URL       string `json:"url"`
	ExpiresIn int64  `json:"expires_in"`
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// uploadDefaults are the options query overrides on POST /objects start from.
func RegisterRoutes(app *fiber.App, svc service.ObjectService, uploadDefaults storage.UploadOptions) {
	app.Get("/health", HealthCheck(svc))
	app.Get("/healthz", LivenessProbe())

	app.Get("/objects", ListObjects(svc))
	app.Post("/objects/*", CreateObject(svc, uploadDefaults))
	app.Get("/objects/*", GetObject(svc))
	app.Delete("/objects/*", DeleteObject(svc))

	app.Get("/signed-url", SignedURL(svc))
}

// HealthCheck godoc
// @Summary Readiness probe
// @Description Checks that the bucket is reachable.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} errorPayload
// @Router /health [get]
func HealthCheck(svc service.ObjectService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := svc.Ping(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe godoc
// @Summary Liveness probe
// @Tags health
// @Success 200
// @Router /healthz [get]
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// ListObjects godoc
// @Summary List object names under a prefix
// @Tags objects
// @Produce json
// @Param prefix query string false "Key prefix; returned names are relative to it"
// @Param single_page query bool false "Read only the first listing page"
// @Success 200 {object} listResponse
// @Failure 502 {object} errorPayload
// @Router /objects [get]
func ListObjects(svc service.ObjectService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		prefix := c.Query("prefix")
		singlePage, err := parseBool(c.Query("single_page"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_SINGLE_PAGE", "invalid single_page")
		}

		var names []string
		if singlePage {
			names, err = svc.FindAllPage(c.UserContext(), prefix)
		} else {
			names, err = svc.FindAll(c.UserContext(), prefix)
		}
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(listResponse{Data: names})
	}
}

// CreateObject godoc
// @Summary Upload an object
// @Description Stores the request body under the given key. A multipart form with a "file" field
// @Description stores the file; format=json stores the body as a JSON document; otherwise the raw body is stored.
// @Tags objects
// @Accept octet-stream,json,mpfd
// @Produce json
// @Param location path string true "Object key"
// @Param format query string false "raw or json"
// @Param concurrency query int false "Parts uploaded in parallel"
// @Param part_size query int false "Part size in bytes (min 5 MiB)"
// @Param leave_parts_on_error query bool false "Keep uploaded parts when the upload fails"
// @Param file formData file false "File to upload"
// @Success 201 {object} storage.UploadResult
// @Failure 400 {object} errorPayload
// @Failure 502 {object} errorPayload
// @Router /objects/{location} [post]
func CreateObject(svc service.ObjectService, defaults storage.UploadOptions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		location, err := objectLocation(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LOCATION", "invalid location")
		}

		opts, code := uploadOptionsFromQuery(c, defaults)
		if code != "" {
			return writeError(c, fiber.StatusBadRequest, code, "invalid "+strings.ToLower(strings.TrimPrefix(code, "INVALID_")))
		}

		payload, code, msg := payloadFromRequest(c)
		if code != "" {
			return writeError(c, fiber.StatusBadRequest, code, msg)
		}

		res, err := svc.Create(c.UserContext(), service.CreateInput{
			Location: location,
			Payload:  payload,
			Upload:   opts,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// GetObject godoc
// @Summary Fetch an object
// @Description format=raw streams the bytes, json returns the stored document, file returns name, size, mime type and base64 data.
// @Tags objects
// @Produce json,octet-stream
// @Param location path string true "Object key"
// @Param format query string false "raw, json or file"
// @Success 200
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Failure 422 {object} errorPayload
// @Router /objects/{location} [get]
func GetObject(svc service.ObjectService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		location, err := objectLocation(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LOCATION", "invalid location")
		}
		format, err := codec.ParseFormat(c.Query("format"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_FORMAT", "invalid format")
		}

		p, err := svc.FindOne(c.UserContext(), location, format)
		if err != nil {
			return writeServiceError(c, err)
		}

		switch v := p.(type) {
		case codec.Raw:
			c.Set(fiber.HeaderContentType, codec.DefaultMimeType)
			return c.Send(v)
		case codec.JSON:
			return c.JSON(v.Value)
		case *codec.NamedFile:
			return c.JSON(v)
		default:
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
	}
}

// DeleteObject godoc
// @Summary Delete an object
// @Description Deleting a missing key succeeds.
// @Tags objects
// @Param location path string true "Object key"
// @Success 204
// @Failure 502 {object} errorPayload
// @Router /objects/{location} [delete]
func DeleteObject(svc service.ObjectService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		location, err := objectLocation(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LOCATION", "invalid location")
		}
		if _, err := svc.Remove(c.UserContext(), location); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// SignedURL godoc
// @Summary Create a time-limited download URL
// @Description Pass either location (object key) or url (absolute object URL).
// @Tags objects
// @Produce json
// @Param location query string false "Object key"
// @Param url query string false "Absolute object URL"
// @Param expires_in query int false "Validity in seconds (default 3600)"
// @Success 200 {object} signedURLResponse
// @Failure 400 {object} errorPayload
// @Router /signed-url [get]
func SignedURL(svc service.ObjectService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		location, rawURL := c.Query("location"), c.Query("url")
		if (location == "") == (rawURL == "") {
			return writeError(c, fiber.StatusBadRequest, "INVALID_TARGET", "exactly one of location or url is required")
		}

		var expiry time.Duration
		if s := c.Query("expires_in"); s != "" {
			secs, err := strconv.ParseInt(s, 10, 64)
			if err != nil || secs <= 0 {
				return writeError(c, fiber.StatusBadRequest, "INVALID_EXPIRES_IN", "invalid expires_in")
			}
			expiry = time.Duration(secs) * time.Second
		}

		var (
			signed string
			err    error
		)
		if location != "" {
			signed, err = svc.GetSignedURL(c.UserContext(), location, expiry)
		} else {
			signed, err = svc.GetSignedURLForURL(c.UserContext(), rawURL, expiry)
		}
		if err != nil {
			return writeServiceError(c, err)
		}

		if expiry == 0 {
			expiry = service.DefaultSignedURLExpiry
		}
		return c.JSON(signedURLResponse{URL: signed, ExpiresIn: int64(expiry / time.Second)})
	}
}

// objectLocation returns the unescaped key. The result is copied out of fiber's request
// buffer so it can outlive the handler.
func objectLocation(c *fiber.Ctx) (string, error) {
	return url.PathUnescape(strings.Clone(c.Params("*")))
}

// uploadOptionsFromQuery returns nil when no override is present so the service defaults apply.
func uploadOptionsFromQuery(c *fiber.Ctx, defaults storage.UploadOptions) (*storage.UploadOptions, string) {
	concurrency, partSize, leave := c.Query("concurrency"), c.Query("part_size"), c.Query("leave_parts_on_error")
	if concurrency == "" && partSize == "" && leave == "" {
		return nil, ""
	}

	opts := defaults
	if concurrency != "" {
		n, err := strconv.Atoi(concurrency)
		if err != nil {
			return nil, "INVALID_CONCURRENCY"
		}
		opts.Concurrency = n
	}
	if partSize != "" {
		n, err := strconv.ParseInt(partSize, 10, 64)
		if err != nil {
			return nil, "INVALID_PART_SIZE"
		}
		opts.PartSize = n
	}
	if leave != "" {
		b, err := parseBool(leave)
		if err != nil {
			return nil, "INVALID_LEAVE_PARTS_ON_ERROR"
		}
		opts.LeavePartsOnError = b
	}
	return &opts, ""
}

func payloadFromRequest(c *fiber.Ctx) (codec.Payload, string, string) {
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, "FILE_REQUIRED", "file is required"
		}
		f, err := fh.Open()
		if err != nil {
			return nil, "FILE_OPEN_ERROR", "cannot open uploaded file"
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			return nil, "FILE_OPEN_ERROR", "cannot read uploaded file"
		}
		mime := fh.Header.Get(fiber.HeaderContentType)
		if mime == "" {
			mime = codec.DefaultMimeType
		}
		return &codec.NamedFile{Name: fh.Filename, Size: int64(len(data)), MimeType: mime, Data: data}, "", ""
	}

	format, err := codec.ParseFormat(c.Query("format"))
	if err != nil || format == codec.FormatNamedFile {
		return nil, "INVALID_FORMAT", "invalid format"
	}
	// fasthttp reuses the body buffer once the handler returns.
	body := bytes.Clone(c.Body())
	if format == codec.FormatJSON {
		var v any
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, "INVALID_JSON", "body is not valid JSON"
		}
		return codec.JSON{Value: v}, "", ""
	}
	return codec.Raw(body), "", ""
}

func parseBool(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}
