package blobstore

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// PublicHandler serves blobs whose key starts with one of prefixes. It is
// mounted at /media/* for content meant for anonymous visitors.
func PublicHandler(s Store, prefixes ...string) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := c.Param("*")
		if !ValidKey(key) || !hasAnyPrefix(key, prefixes) {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		return Stream(c, s, key, "", false)
	}
}

// Stream copies the blob at key to the response. When fileName is set the
// browser is asked to download (attachment) or display (inline) it under
// that name.
func Stream(c echo.Context, s Store, key, fileName string, attachment bool) error {
	rc, obj, err := s.Open(c.Request().Context(), key)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) || errors.Is(err, ErrInvalidKey) {
			return echo.NewHTTPError(http.StatusNotFound, "file not found")
		}
		return err
	}
	defer rc.Close()

	if fileName != "" {
		disposition := "inline"
		if attachment {
			disposition = "attachment"
		}
		c.Response().Header().Set(echo.HeaderContentDisposition,
			disposition+`; filename="`+sanitizeFileName(fileName)+`"`)
	}
	ct := obj.ContentType
	if ct == "" {
		ct = echo.MIMEOctetStream
	}
	c.Response().Header().Set(echo.HeaderContentType, ct)
	c.Response().WriteHeader(http.StatusOK)
	_, err = io.Copy(c.Response(), rc)
	return err
}

func hasAnyPrefix(key string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(key, strings.Trim(p, "/")+"/") {
			return true
		}
	}
	return false
}

func sanitizeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '"', '\\', '\r', '\n':
			return '_'
		}
		return r
	}, name)
}
