package reference

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const airportsCSV = `"id","ident","type","name","latitude_deg","longitude_deg","elevation_ft","continent","iso_country","iso_region","municipality","scheduled_service","gps_code","iata_code","local_code","home_link","wikipedia_link","keywords"
3384,"EDDF","large_airport","Frankfurt am Main Airport",50.030241,8.561096,364,"EU","DE","DE-HE","Frankfurt am Main","yes","EDDF","FRA",,"https://www.frankfurt-airport.com/","https://en.wikipedia.org/wiki/Frankfurt_Airport","EDAF, Rhein-Main Air Base"
2434,"EDDT","closed","Berlin-Tegel Otto Lilienthal Airport",52.5597,13.2877,122,"EU","DE","DE-BE","Berlin","no","","",,"","","TXL, EDDT"
`

const airlinesCSV = `324,"All Nippon Airways","ANA All Nippon Airways","NH","ANA","ALL NIPPON","Japan","Y"
3320,"Lufthansa",\N,"LH","DLH","LUFTHANSA","Germany","Y"
`

const aircraftCSV = `icao_type,iata_type,model_name
B738,738,Boeing 737-800
A320,320,Airbus A320
C172,—,Cessna 172
`

func TestReadAirports(t *testing.T) {
	got, err := ReadAirports(strings.NewReader(airportsCSV))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d airports", len(got))
	}
	fra := got[0]
	if fra.ID != "3384" || fra.ICAO != "EDDF" || fra.IATA != "FRA" || fra.Country != "DE" || fra.Municipality != "Frankfurt am Main" {
		t.Fatalf("unexpected airport: %+v", fra)
	}
	if fra.Lat != 50.030241 || fra.Lon != 8.561096 {
		t.Fatalf("unexpected position: %v %v", fra.Lat, fra.Lon)
	}
	if got[1].IATA != "" || got[1].Keywords != "TXL, EDDT" {
		t.Fatalf("unexpected closed airport: %+v", got[1])
	}
}

func TestReadAirportsMissingColumn(t *testing.T) {
	if _, err := ReadAirports(strings.NewReader("id,ident,name\n1,X,Y\n")); err == nil {
		t.Fatalf("expected error for missing columns")
	}
}

func TestReadAirlines(t *testing.T) {
	got, err := ReadAirlines(strings.NewReader(airlinesCSV))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[1].Name != "Lufthansa" || got[1].Alias != "" || got[1].IATA != "LH" {
		t.Fatalf("unexpected airlines: %+v", got)
	}
}

func TestReadAircraft(t *testing.T) {
	got, err := ReadAircraft(strings.NewReader(aircraftCSV))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[2].IATAType != "" || got[0].ModelName != "Boeing 737-800" {
		t.Fatalf("unexpected aircraft: %+v", got)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, AirportsFile), airportsCSV)
	writeFile(t, filepath.Join(dir, AirlinesFile), airlinesCSV)
	writeFile(t, filepath.Join(dir, AircraftFile), aircraftCSV)
	writeFile(t, filepath.Join(dir, AircraftSupplemental), "icao_type,iata_type,model_name\nB738,738,Boeing 737-800\nA20N,32N,Airbus A320neo\n")

	tables, err := LoadDir(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(tables.Aircraft) != 4 {
		t.Fatalf("aircraft = %d, want 4 after dedupe", len(tables.Aircraft))
	}
	a, ok := tables.AirportByIATA("FRA")
	if !ok || a.ICAO != "EDDF" {
		t.Fatalf("AirportByIATA(FRA) = %+v %t", a, ok)
	}
	if _, ok := tables.AirportByIATA(""); ok {
		t.Fatalf("blank IATA must not resolve")
	}
}

func TestLoadDirWithoutAircraft(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, AirportsFile), airportsCSV)
	writeFile(t, filepath.Join(dir, AirlinesFile), airlinesCSV)

	tables, err := LoadDir(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(tables.Aircraft) != 0 || len(tables.Airports) == 0 {
		t.Fatalf("aircraft = %d, airports = %d", len(tables.Aircraft), len(tables.Airports))
	}
}

func TestLoadDirMissingTable(t *testing.T) {
	if _, err := LoadDir(context.Background(), t.TempDir()); err == nil {
		t.Fatalf("expected error for empty data dir")
	}
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "payload for %s", r.URL.Path)
	}))
	defer srv.Close()

	dir := t.TempDir()
	sources := []Source{{URL: srv.URL + "/airports.csv", Path: AirportsFile}}
	written, err := Download(context.Background(), NewDownloadClient(5*time.Second), dir, sources)
	if err != nil {
		t.Fatal(err)
	}
	if len(written) != 1 {
		t.Fatalf("written = %v", written)
	}
	b, err := os.ReadFile(filepath.Join(dir, AirportsFile))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "payload for /airports.csv" {
		t.Fatalf("content = %q", b)
	}
}

const designatorPage = `<html><body>
<table class="wikitable sortable"><tbody>
<tr><th>ICAO code<sup>[3]</sup></th><th>IATA type code</th><th>Model</th></tr>
<tr><td>A20N</td><td>32N</td><td>Airbus A320neo</td></tr>
<tr><td>B738</td><td>738</td><td>Boeing 737-800 <sup>[a]</sup></td></tr>
<tr><td>ZZZZ</td><td></td><td></td></tr>
</tbody></table>
<table class="wikitable"><tr><th>Other</th></tr><tr><td>ignored</td></tr></table>
</body></html>`

func TestConvertAircraftTable(t *testing.T) {
	var out strings.Builder
	if err := ConvertAircraftTable(strings.NewReader(designatorPage), &out); err != nil {
		t.Fatal(err)
	}
	want := "icao_type,iata_type,model_name\nA20N,32N,Airbus A320neo\nB738,738,Boeing 737-800\n"
	if out.String() != want {
		t.Fatalf("csv = %q, want %q", out.String(), want)
	}

	if err := ConvertAircraftTable(strings.NewReader("<p>no table</p>"), &out); !errors.Is(err, errNoDesignatorTable) {
		t.Fatalf("error = %v, want errNoDesignatorTable", err)
	}
}

func TestDownloadConvertsAircraftTable(t *testing.T) {
	var agent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent = r.Header.Get("User-Agent")
		fmt.Fprint(w, designatorPage)
	}))
	defer srv.Close()

	dir := t.TempDir()
	sources := []Source{{URL: srv.URL + "/wiki/List_of_aircraft_type_designators", Path: AircraftFile, Convert: ConvertAircraftTable}}
	if _, err := Download(context.Background(), NewDownloadClient(5*time.Second), dir, sources); err != nil {
		t.Fatal(err)
	}
	if agent != userAgent {
		t.Fatalf("User-Agent = %q", agent)
	}

	f, err := os.Open(filepath.Join(dir, AircraftFile))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	aircraft, err := ReadAircraft(f)
	if err != nil {
		t.Fatal(err)
	}
	if len(aircraft) != 2 || aircraft[1] != (Aircraft{ICAOType: "B738", IATAType: "738", ModelName: "Boeing 737-800"}) {
		t.Fatalf("aircraft = %+v", aircraft)
	}
}
