package archive

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestObjectName(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	name := ObjectName(Object{JobFolder: "12 Spud Street", Date: date, DocumentID: "doc-1", Filename: "inv.pdf"})
	assert.Equal(t, "12 Spud Street/2024-03-01_doc-1_inv.pdf", name)

	name = ObjectName(Object{JobFolder: "3/14 Beach Rd", Date: date, DocumentID: "doc-2", Filename: "a/b.png"})
	assert.Equal(t, "3-14 Beach Rd/2024-03-01_doc-2_a-b.png", name)

	name = ObjectName(Object{Date: date, DocumentID: "doc-3"})
	assert.Equal(t, "unassigned/2024-03-01_doc-3_attachment", name)
}

func TestAlreadyExists(t *testing.T) {
	assert.True(t, alreadyExists(&googleapi.Error{Code: 412}))
	assert.True(t, alreadyExists(fmt.Errorf("close: %w", &googleapi.Error{Code: 412})))
	assert.False(t, alreadyExists(&googleapi.Error{Code: 403}))
	assert.False(t, alreadyExists(errors.New("boom")))
}

func TestNoop(t *testing.T) {
	uri, err := Noop{}.Archive(context.Background(), Object{})
	assert.NoError(t, err)
	assert.Empty(t, uri)
}
