package dto

// UploadedFile is one file part of a multipart submission, read into memory.
type UploadedFile struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}

// ProductForm is a create-or-update submission. ID is empty on create.
type ProductForm struct {
	ID            string
	Fields        map[string][]string
	ImageFiles    []UploadedFile
	DocumentFiles []UploadedFile
	SpecFiles     []UploadedFile
}
