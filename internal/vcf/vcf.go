// Package vcf serializes collected contacts as a vCard 3.0 document.
//
// Field values are written verbatim. Commas, semicolons and newlines in names
// are not escaped; existing importers of these files depend on that output.
package vcf

import (
	"fmt"
	"io"
	"strings"

	"github.com/wolfeidau/contactgain/internal/models"
)

// ContentType is the MIME type used when serving an encoded document.
const ContentType = "text/vcard;charset=utf-8"

const (
	filenamePrefix = "Abenapro"
	separator      = "\n\n"
)

// Encode renders contacts in input order, one BEGIN:VCARD..END:VCARD block per
// contact, separated by a blank line. An empty slice encodes to "".
func Encode(contacts []models.Contact) string {
	var b strings.Builder
	// WriteTo into a strings.Builder cannot fail
	_ = WriteTo(&b, contacts)
	return b.String()
}

// WriteTo streams the same bytes Encode returns.
func WriteTo(w io.Writer, contacts []models.Contact) error {
	for i, c := range contacts {
		if i > 0 {
			if _, err := io.WriteString(w, separator); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, card(c)); err != nil {
			return err
		}
	}
	return nil
}

func card(c models.Contact) string {
	return "BEGIN:VCARD\n" +
		"VERSION:3.0\n" +
		"FN:" + c.Name + "\n" +
		"TEL;TYPE=CELL:" + c.Phone + "\n" +
		"END:VCARD"
}

// Filename returns the download name for a session's file id, e.g.
// "Abenapro005.vcf". Ids of zero or less are treated as absent and use 1.
// Ids wider than three digits are kept whole.
func Filename(fileIDNum int) string {
	if fileIDNum <= 0 {
		fileIDNum = 1
	}
	return fmt.Sprintf("%s%03d.vcf", filenamePrefix, fileIDNum)
}
