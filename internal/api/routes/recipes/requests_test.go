package recipes

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"
)

var pngBytes = append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 32)...)

func pngDataURI() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
}

func TestDecodeCreateRequestJSON(t *testing.T) {
	body := fmt.Sprintf(`{
		"name": "Bread",
		"text": "Bake it.",
		"cooking_time": 90,
		"tags": [1, 2],
		"ingredients": [{"id": 7, "amount": 200}],
		"image": %q
	}`, pngDataURI())

	r := httptest.NewRequest("POST", "/api/recipes", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")

	req, image, err := decodeCreateRequest(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Name != "Bread" || req.CookingTime != 90 {
		t.Errorf("unexpected payload %+v", req)
	}
	if len(req.Ingredients) != 1 || req.Ingredients[0].ID != 7 {
		t.Errorf("unexpected ingredients %v", req.Ingredients)
	}
	if len(req.Tags) != 2 {
		t.Errorf("unexpected tags %v", req.Tags)
	}
	if image == nil || image.MimeType != "image/png" {
		t.Errorf("unexpected image %+v", image)
	}
}

func TestDecodeCreateRequestMissingImage(t *testing.T) {
	body := `{"name": "Bread", "text": "Bake it.", "cooking_time": 90}`
	r := httptest.NewRequest("POST", "/api/recipes", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")

	_, _, err := decodeCreateRequest(r)
	if !errors.Is(err, errMissingImage) {
		t.Errorf("expected errMissingImage, got %v", err)
	}
}

func TestDecodeCreateRequestMultipart(t *testing.T) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("name", "Bread")
	_ = w.WriteField("text", "Bake it.")
	_ = w.WriteField("cooking_time", "90")
	_ = w.WriteField("tags", "1")
	_ = w.WriteField("tags", "2")
	_ = w.WriteField("ingredients", `[{"id": 7, "amount": 200}]`)
	fw, err := w.CreateFormFile("image", "bread.png")
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	if _, err := fw.Write(pngBytes); err != nil {
		t.Fatalf("writing form file: %v", err)
	}
	_ = w.Close()

	r := httptest.NewRequest("POST", "/api/recipes", &buf)
	r.Header.Set("Content-Type", w.FormDataContentType())

	req, image, err := decodeCreateRequest(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Name != "Bread" || req.Text != "Bake it." || req.CookingTime != 90 {
		t.Errorf("unexpected payload %+v", req)
	}
	if len(req.Tags) != 2 || req.Tags[0] != 1 || req.Tags[1] != 2 {
		t.Errorf("unexpected tags %v", req.Tags)
	}
	if len(req.Ingredients) != 1 || req.Ingredients[0].Amount != 200 {
		t.Errorf("unexpected ingredients %v", req.Ingredients)
	}
	if image == nil || image.Suffix != ".png" {
		t.Errorf("unexpected image %+v", image)
	}
}

func TestDecodeUpdateRequestPartial(t *testing.T) {
	body := `{"cooking_time": 30}`
	r := httptest.NewRequest("PATCH", "/api/recipes/1", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")

	req, image, err := decodeUpdateRequest(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.CookingTime == nil || *req.CookingTime != 30 {
		t.Errorf("expected cooking_time 30, got %v", req.CookingTime)
	}
	if req.Name != nil || req.Text != nil || req.Tags != nil || req.Ingredients != nil {
		t.Errorf("expected absent fields to stay nil, got %+v", req)
	}
	if image != nil {
		t.Error("expected no image")
	}
}

func TestDecodeUpdateRequestWithImage(t *testing.T) {
	body := fmt.Sprintf(`{"image": %q}`, pngDataURI())
	r := httptest.NewRequest("PATCH", "/api/recipes/1", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")

	_, image, err := decodeUpdateRequest(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if image == nil || image.MimeType != "image/png" {
		t.Errorf("unexpected image %+v", image)
	}
}

func TestSplitIngredients(t *testing.T) {
	ids, amounts := splitIngredients(nil)
	if len(ids) != 0 || len(amounts) != 0 {
		t.Errorf("expected empty slices, got %v %v", ids, amounts)
	}
}
