package reference

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// AircraftDesignatorsURL lists ICAO and IATA aircraft type designators.
const AircraftDesignatorsURL = "https://en.wikipedia.org/wiki/List_of_aircraft_type_designators"

var (
	footnoteRe = regexp.MustCompile(`\[[^\]]*\]`)
	icaoHeadRe = regexp.MustCompile(`(?i)icao`)
	iataHeadRe = regexp.MustCompile(`(?i)iata`)
	modelRe    = regexp.MustCompile(`(?i)model`)
)

var errNoDesignatorTable = errors.New("no aircraft designator table found")

// ConvertAircraftTable reads the designator page and writes the first
// wikitable as icao_type,iata_type,model_name CSV. Columns are found by
// header text so reordering upstream does not break the snapshot.
func ConvertAircraftTable(r io.Reader, w io.Writer) error {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return err
	}
	table := doc.Find("table.wikitable").First()
	if table.Length() == 0 {
		return errNoDesignatorTable
	}

	icao, iata, model := -1, -1, -1
	table.Find("tr").First().Find("th").Each(func(i int, th *goquery.Selection) {
		h := wikiText(th)
		switch {
		case icao < 0 && icaoHeadRe.MatchString(h):
			icao = i
		case iata < 0 && iataHeadRe.MatchString(h):
			iata = i
		case model < 0 && modelRe.MatchString(h):
			model = i
		}
	})
	if icao < 0 || iata < 0 || model < 0 {
		return fmt.Errorf("%w: header columns icao=%d iata=%d model=%d", errNoDesignatorTable, icao, iata, model)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"icao_type", "iata_type", "model_name"}); err != nil {
		return err
	}
	var werr error
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if werr != nil || cells.Length() == 0 {
			return
		}
		cell := func(i int) string {
			if i >= cells.Length() {
				return ""
			}
			return wikiText(cells.Eq(i))
		}
		if cell(model) == "" {
			return
		}
		werr = cw.Write([]string{cell(icao), cell(iata), cell(model)})
	})
	if werr != nil {
		return werr
	}
	cw.Flush()
	return cw.Error()
}

func wikiText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(footnoteRe.ReplaceAllString(s.Text(), "")), " ")
}
