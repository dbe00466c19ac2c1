package dto

const (
	UploadKindImage         = "image"
	UploadKindDocument      = "document"
	UploadKindSpecification = "specification"
)

type PresignRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Kind        string `json:"kind"`
}

type PresignResponse struct {
	UploadURL string `json:"upload_url"`
	Key       string `json:"key"`
	PublicURL string `json:"public_url"`
	ExpiresIn int    `json:"expires_in"`
}

type SignedURLResponse struct {
	URL       string `json:"url"`
	ExpiresIn int    `json:"expires_in"`
}

type UploadRequest struct {
	Kind              string
	File              UploadedFile
	GenerateThumbnail bool
}

type UploadResponse struct {
	Key          string  `json:"key"`
	URL          string  `json:"url"`
	ContentType  string  `json:"content_type"`
	Size         int64   `json:"size"`
	ThumbnailKey *string `json:"thumbnail_key,omitempty"`
	ThumbnailURL *string `json:"thumbnail_url,omitempty"`
}

type DeleteObjectResponse struct {
	Success bool `json:"success"`
}

type OptimizeImageRequest struct {
	Key     string `query:"key"`
	Preset  string `query:"preset"`
	Width   int    `query:"width"`
	Height  int    `query:"height"`
	Quality int    `query:"quality"`
}

type OptimizedImage struct {
	Data        []byte
	ContentType string
	Cached      bool
}
