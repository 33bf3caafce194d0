package http

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/dockboard/dockboard/internal/core/board"
	"github.com/dockboard/dockboard/internal/core/domain"
)

func TestSanitizeTag(t *testing.T) {
	tests := []struct{ in, want string }{
		{"My App", "my-app"},
		{"web_1", "web_1"},
		{"API:v2", "api-v2"},
		{"///", "container"},
		{"-leading-", "leading"},
	}
	for _, tt := range tests {
		if got := sanitizeTag(tt.in); got != tt.want {
			t.Errorf("sanitizeTag(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestZipBundles(t *testing.T) {
	buf, err := zipBundles(map[string]*domain.ExportBundle{
		"app": {Label: "app", Files: map[string][]byte{
			"Dockerfile": []byte("FROM alpine\n"),
			"run.sh":     []byte("#!/bin/sh\n"),
		}},
		"": {Label: "root", Files: map[string][]byte{
			"README.txt": []byte("hello"),
		}},
	})
	if err != nil {
		t.Fatal(err)
	}

	reader, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}

	contents := map[string]string{}
	for _, file := range reader.File {
		rc, err := file.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		contents[file.Name] = string(data)
	}

	want := map[string]string{
		"app/Dockerfile": "FROM alpine\n",
		"app/run.sh":     "#!/bin/sh\n",
		"README.txt":     "hello",
	}
	for name, body := range want {
		if contents[name] != body {
			t.Errorf("entry %q = %q, want %q", name, contents[name], body)
		}
	}
	if len(contents) != len(want) {
		t.Errorf("zip entries = %v", contents)
	}
}

func TestMutationResponseMapping(t *testing.T) {
	app := fiber.New()
	results := map[string]board.MutationResult{
		"/confirmed": {Outcome: board.OutcomeConfirmed},
		"/partial":   {Outcome: board.OutcomePartial, SecondaryErrs: []error{errors.New("one member failed")}},
		"/rolled":    {Outcome: board.OutcomeRolledBack, Err: errors.New("disk full")},
		"/busy":      {Outcome: board.OutcomeRolledBack, Err: board.ErrBusy},
	}
	for path, result := range results {
		result := result
		app.Get(path, func(c *fiber.Ctx) error { return mutationResponse(c, result) })
	}

	tests := []struct {
		path    string
		status  int
		outcome string
	}{
		{"/confirmed", fiber.StatusOK, "confirmed"},
		{"/partial", fiber.StatusOK, "partial"},
		{"/rolled", fiber.StatusInternalServerError, "rolled-back"},
		{"/busy", fiber.StatusConflict, "rolled-back"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", tt.path, nil))
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			var body struct {
				Outcome string `json:"outcome"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body.Outcome != tt.outcome {
				t.Errorf("outcome = %q, want %q", body.Outcome, tt.outcome)
			}
		})
	}
}

func TestWallpaperRejectsInvalidMarket(t *testing.T) {
	app := fiber.New()
	handler := NewWallpaperHandler(nil)
	app.Get("/api/wallpaper", handler.Get)

	for _, market := range []string{"EN-us", "english", "en_US", "e1-US"} {
		resp, err := app.Test(httptest.NewRequest("GET", "/api/wallpaper?market="+market, nil))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != fiber.StatusBadRequest {
			t.Errorf("market %q: status = %d, want 400", market, resp.StatusCode)
		}
	}
}

func TestIconUploadValidation(t *testing.T) {
	app := fiber.New()
	handler := NewIconHandler(t.TempDir(), nil)
	app.Post("/api/icons", handler.Upload)

	t.Run("missing file", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("POST", "/api/icons", nil))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != fiber.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("disallowed extension", func(t *testing.T) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		part, err := writer.CreateFormFile("file", "evil.exe")
		if err != nil {
			t.Fatal(err)
		}
		part.Write([]byte("not an image"))
		writer.Close()

		req := httptest.NewRequest("POST", "/api/icons", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		resp, err := app.Test(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != fiber.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("valid upload is content addressed", func(t *testing.T) {
		upload := func() string {
			body := &bytes.Buffer{}
			writer := multipart.NewWriter(body)
			part, err := writer.CreateFormFile("file", "icon.png")
			if err != nil {
				t.Fatal(err)
			}
			part.Write([]byte("png bytes"))
			writer.Close()

			req := httptest.NewRequest("POST", "/api/icons", body)
			req.Header.Set("Content-Type", writer.FormDataContentType())
			resp, err := app.Test(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != fiber.StatusOK {
				t.Fatalf("status = %d, want 200", resp.StatusCode)
			}
			var out struct {
				File string `json:"file"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				t.Fatal(err)
			}
			return out.File
		}

		first := upload()
		second := upload()
		if first == "" || first != second {
			t.Errorf("uploads = %q and %q, want the same content-addressed name", first, second)
		}
	})
}
