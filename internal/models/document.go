// internal/models/document.go
package models

import "fmt"

// DocumentCategory partitions an applicant's pending uploads.
type DocumentCategory string

const (
	CategoryFrontAadhar DocumentCategory = "frontAadhar"
	CategoryBackAadhar  DocumentCategory = "backAadhar"
	CategoryPAN         DocumentCategory = "pan"
	CategoryOther       DocumentCategory = "other"

	DefaultOtherDocType = "Other"
)

// DocumentCategories lists the categories in attach order.
var DocumentCategories = []DocumentCategory{
	CategoryFrontAadhar,
	CategoryBackAadhar,
	CategoryPAN,
	CategoryOther,
}

// ParseDocumentCategory validates a category name from an upload event.
func ParseDocumentCategory(s string) (DocumentCategory, error) {
	for _, c := range DocumentCategories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown document category %q", s)
}

// Tag returns the record-store tag for the category. The "other" bucket is
// tagged with the document type the user selected.
func (c DocumentCategory) Tag(selectedDocType string) string {
	switch c {
	case CategoryFrontAadhar, CategoryBackAadhar:
		return "Aadhar Card"
	case CategoryPAN:
		return "PAN Card"
	default:
		if selectedDocType == "" {
			return DefaultOtherDocType
		}
		return selectedDocType
	}
}

// FileBucket holds one applicant's pending document ids by category.
type FileBucket map[DocumentCategory][]string

// FileBuckets maps applicant id to its bucket.
type FileBuckets map[string]FileBucket

// With returns a copy of the buckets with documentID appended under the
// applicant's category. The receiver is not modified.
func (b FileBuckets) With(applicantID string, category DocumentCategory, documentID string) FileBuckets {
	out := b.Clone()
	bucket := out[applicantID]
	if bucket == nil {
		bucket = FileBucket{}
	}
	bucket[category] = append(bucket[category], documentID)
	out[applicantID] = bucket
	return out
}

// Without drops an applicant's bucket, returning a copy.
func (b FileBuckets) Without(applicantID string) FileBuckets {
	out := b.Clone()
	delete(out, applicantID)
	return out
}

// For returns the applicant's bucket, never nil.
func (b FileBuckets) For(applicantID string) FileBucket {
	if bucket, ok := b[applicantID]; ok && bucket != nil {
		return bucket
	}
	return FileBucket{}
}

// Clone deep-copies the buckets.
func (b FileBuckets) Clone() FileBuckets {
	out := make(FileBuckets, len(b))
	for id, bucket := range b {
		cp := make(FileBucket, len(bucket))
		for c, ids := range bucket {
			cp[c] = append([]string(nil), ids...)
		}
		out[id] = cp
	}
	return out
}

// Empty reports whether no category holds a document.
func (b FileBucket) Empty() bool {
	for _, ids := range b {
		if len(ids) > 0 {
			return false
		}
	}
	return true
}
