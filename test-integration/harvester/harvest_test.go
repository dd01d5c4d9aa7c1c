package integration

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stacklok/csw-harvester/internal/sources"
	"github.com/stacklok/csw-harvester/internal/status"
	"github.com/stacklok/csw-harvester/test-integration/harvester/helpers"
)

var _ = Describe("Harvest", func() {
	var (
		server  *helpers.CatalogueServer
		tempDir string
	)

	BeforeEach(func() {
		server = helpers.NewCatalogueServer()
		tempDir = createTempDir("csw-harvester-it-")

		data, err := helpers.BuildSpreadsheet(
			helpers.APIRow{
				Country: "Austria", Provider: "Umweltbundesamt", Level: "National", Theme: "Environment",
				URLs: server.URL + "/live/uba",
			},
			helpers.APIRow{
				Country: "Belgium", Provider: "Geopunt", Level: "Regional", Theme: "Environment",
				URLs: server.URL + "/live/geopunt\n" + server.URL + "/exception/geopunt",
			},
			helpers.APIRow{
				Country: "Czechia", Provider: "CUZK", Level: "National", Theme: "Environment",
				URLs: server.URL + "/broken/cuzk",
			},
			helpers.APIRow{
				Country: "Denmark", Provider: "SDFI", Level: "National", Theme: "Transport",
				URLs: server.URL + "/live/sdfi",
			},
		)
		Expect(err).NotTo(HaveOccurred())
		server.SetSpreadsheet(data)
	})

	AfterEach(func() {
		server.Close()
		cleanupTempDir(tempDir)
	})

	Context("printing", func() {
		It("prints every matching URL with its entry name", func() {
			out, err := helpers.RunCLI(ctx, "harvest", "--url", server.SpreadsheetURL(), "--level", "Environment")
			Expect(err).NotTo(HaveOccurred())

			lines := strings.Split(strings.TrimSpace(out), "\n")
			Expect(lines).To(Equal([]string{
				"Austria, National, Umweltbundesamt: " + server.URL + "/live/uba",
				"1. Belgium, Regional, Geopunt: " + server.URL + "/live/geopunt",
				"2. Belgium, Regional, Geopunt: " + server.URL + "/exception/geopunt",
				"Czechia, National, CUZK: " + server.URL + "/broken/cuzk",
			}))
			Expect(server.ProbeCount("/live/uba")).To(BeZero())
		})

		It("keeps only the services answering GetCapabilities", func() {
			out, err := helpers.RunCLI(ctx, "harvest",
				"--url", server.SpreadsheetURL(),
				"--level", "Environment",
				"--active-service",
			)
			Expect(err).NotTo(HaveOccurred())

			Expect(out).To(ContainSubstring(server.URL + "/live/uba"))
			Expect(out).To(ContainSubstring(server.URL + "/live/geopunt"))
			Expect(out).NotTo(ContainSubstring("/exception/geopunt"))
			Expect(out).NotTo(ContainSubstring("/broken/cuzk"))
			Expect(out).NotTo(ContainSubstring("/live/sdfi"))
			Expect(server.ProbeCount("/exception/geopunt")).To(Equal(1))
			Expect(server.ProbeCount("/live/sdfi")).To(BeZero())
		})

		It("keeps only the failing services", func() {
			out, err := helpers.RunCLI(ctx, "harvest",
				"--url", server.SpreadsheetURL(),
				"--level", "environment",
				"--not-active-service",
			)
			Expect(err).NotTo(HaveOccurred())

			Expect(out).To(ContainSubstring("2. Belgium, Regional, Geopunt: " + server.URL + "/exception/geopunt"))
			Expect(out).To(ContainSubstring("Czechia, National, CUZK: " + server.URL + "/broken/cuzk"))
			Expect(out).NotTo(ContainSubstring("/live/"))
		})
	})

	Context("writing", func() {
		var xmlPath, xsdPath, statusPath string

		BeforeEach(func() {
			var err error
			xmlPath, xsdPath, err = helpers.WriteRegistry(tempDir, helpers.EmptyRegistry)
			Expect(err).NotTo(HaveOccurred())
			statusPath = filepath.Join(tempDir, "status.json")
		})

		harvestArgs := func() []string {
			return []string{"harvest",
				"--url", server.SpreadsheetURL(),
				"--level", "Environment",
				"--active-service",
				"--write",
				"--xml", xmlPath,
				"--xsd", xsdPath,
				"--status-file", statusPath,
			}
		}

		It("appends only the live services to the registry", func() {
			out, err := helpers.RunCLI(ctx, harvestArgs()...)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(BeEmpty())

			registryXML, err := os.ReadFile(xmlPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(registryXML)).To(ContainSubstring(`name="Austria, National, Umweltbundesamt"`))
			Expect(string(registryXML)).To(ContainSubstring(`name="1. Belgium, Regional, Geopunt"`))
			Expect(string(registryXML)).NotTo(ContainSubstring("/exception/geopunt"))
			Expect(string(registryXML)).NotTo(ContainSubstring("/broken/cuzk"))

			runStatus := readStatus(statusPath)
			Expect(runStatus.Phase).To(Equal(status.RunPhaseComplete))
			Expect(runStatus.Counts.Written).To(Equal(2))
			Expect(runStatus.InactiveURLs).To(ConsistOf(
				server.URL+"/exception/geopunt",
				server.URL+"/broken/cuzk",
			))
		})

		It("leaves the registry unchanged on a second run", func() {
			_, err := helpers.RunCLI(ctx, harvestArgs()...)
			Expect(err).NotTo(HaveOccurred())
			first, err := os.ReadFile(xmlPath)
			Expect(err).NotTo(HaveOccurred())

			_, err = helpers.RunCLI(ctx, harvestArgs()...)
			Expect(err).NotTo(HaveOccurred())
			second, err := os.ReadFile(xmlPath)
			Expect(err).NotTo(HaveOccurred())

			Expect(second).To(Equal(first))
			runStatus := readStatus(statusPath)
			Expect(runStatus.Counts.Written).To(BeZero())
			Expect(runStatus.Counts.Duplicates).To(Equal(2))
		})

		It("lists the written entries with the validate command", func() {
			_, err := helpers.RunCLI(ctx, harvestArgs()...)
			Expect(err).NotTo(HaveOccurred())

			out, err := helpers.RunCLI(ctx, "validate", "--xml", xmlPath, "--xsd", xsdPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("Austria, National, Umweltbundesamt: " + server.URL + "/live/uba"))
			Expect(out).To(ContainSubstring("1. Belgium, Regional, Geopunt: " + server.URL + "/live/geopunt"))
		})

		It("records a failed run when the spreadsheet is missing", func() {
			server.SetSpreadsheet(nil)

			_, err := helpers.RunCLI(ctx, harvestArgs()...)
			Expect(err).To(HaveOccurred())

			var statusErr *sources.HTTPStatusError
			Expect(errors.As(err, &statusErr)).To(BeTrue())
			Expect(statusErr.StatusCode).To(Equal(http.StatusNotFound))

			registryXML, err := os.ReadFile(xmlPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(registryXML)).To(Equal(helpers.EmptyRegistry))
			Expect(readStatus(statusPath).Phase).To(Equal(status.RunPhaseFailed))
		})
	})
})

func readStatus(path string) *status.RunStatus {
	data, err := os.ReadFile(path)
	Expect(err).NotTo(HaveOccurred())
	var runStatus status.RunStatus
	Expect(json.Unmarshal(data, &runStatus)).To(Succeed())
	return &runStatus
}
