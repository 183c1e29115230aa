package attachments

import (
	"fmt"

	"github.com/vincent-petithory/dataurl"
)

// Info describes a decoded data URI payload.
type Info struct {
	MediaType string
	Size      int
}

// Decode returns the media type and raw payload of a data URI.
func Decode(uri string) (string, []byte, error) {
	du, err := dataurl.DecodeString(uri)
	if err != nil {
		return "", nil, fmt.Errorf("decode data uri: %w", err)
	}
	return du.ContentType(), du.Data, nil
}

// Inspect decodes uri and reports its media type and payload size.
func Inspect(uri string) (Info, error) {
	mediaType, data, err := Decode(uri)
	if err != nil {
		return Info{}, err
	}
	return Info{MediaType: mediaType, Size: len(data)}, nil
}
