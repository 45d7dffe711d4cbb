package selection

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/album-bracket/models"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

var (
	ErrNoJSONArray  = errors.New("response does not contain a JSON array")
	ErrMalformedID  = errors.New("response contains an element that is not an album id")
	uuidStringWidth = len(uuid.Nil.String())
)

func buildSelectionPrompt(albums []*models.Album, hint string, need int, exclude []*models.Album, note string) string {
	var b strings.Builder

	b.WriteString("You are given the following list of albums, each one having a UUID, artist name, and album name in that order:\n\n")
	for _, album := range albums {
		fmt.Fprintf(&b, "ID: %s, Artist: %q, Name: %q\n", album.ID, album.ArtistName, album.Name)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "You must select %d albums from the list, and output the UUIDs of the selected albums as a JSON array of strings. ", need)
	b.WriteString("Do not add any explanations, markdown, or additional text, simply write the JSON array. ")
	b.WriteString("The albums that you select must adhere to the following rules:\n\n")

	rules := []string{
		fmt.Sprintf("You must select %d album IDs from the list, no more, no less, even if the below rules must be broken to do so.", need),
	}
	if hint = strings.TrimSpace(hint); hint != "" {
		rules = append(rules, fmt.Sprintf(
			"The albums you select must try to adhere to the constraint: %q. If there are not enough albums that fit this constraint, "+
				"pick random ones to reach the correct amount, and if the constraint does not make sense, simply ignore it.", hint))
	}
	if len(exclude) > 0 {
		ids := make([]string, 0, len(exclude))
		for _, album := range exclude {
			ids = append(ids, album.ID.String())
		}
		rules = append(rules, "Do not pick any of these already selected albums: "+strings.Join(ids, ", ")+".")
	}
	for i, rule := range rules {
		fmt.Fprintf(&b, "%d. %s\n", i+1, rule)
	}

	if note != "" {
		b.WriteString("\n")
		b.WriteString(note)
		b.WriteString("\n")
	}
	return b.String()
}

// parseAlbumIDs extracts the JSON array from a model reply. Any element that
// is not a canonical UUID string rejects the whole reply.
func parseAlbumIDs(reply string) ([]uuid.UUID, error) {
	reply = strings.TrimSpace(reply)
	begin := strings.IndexByte(reply, '[')
	end := strings.LastIndexByte(reply, ']')
	if begin < 0 || end < begin {
		return nil, ErrNoJSONArray
	}

	var elements []any
	if err := json.Unmarshal([]byte(reply[begin:end+1]), &elements); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoJSONArray, err)
	}

	ids := make([]uuid.UUID, 0, len(elements))
	for _, element := range elements {
		s, ok := element.(string)
		if !ok || len(s) != uuidStringWidth {
			return nil, fmt.Errorf("%w: %v", ErrMalformedID, element)
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrMalformedID, s)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
