// CLAUDE:SUMMARY CLI that loads CV profiles and their section records from a YAML fixture, through the same validation as the admin API.
// Command cvseed loads CV profiles from a YAML fixture.
//
// Usage:
//
//	cvseed -db data/hojadevida.db -file fixtures/cv.yaml
//	cvseed -db data/hojadevida.db -file fixtures/cv.yaml -reset
//
// Fixture layout:
//
//	profiles:
//	  - names: Ana
//	    surnames: Vera
//	    active: true
//	    courses:
//	      - name: Go avanzado
//	        start_date: 2021-03-01
//	        visible: true
//	        link: https://drive.example.com/go.pdf
//	    marketplace:
//	      - product: Escritorio
//	        price: 80
//	        condition: bueno
//	        published_at: 2026-01-05
//	        active: true
//	        file: garage/escritorio.pdf
//
// Section records take an optional "file" (object storage key) and "link"
// (free-text URL); a file wins over a link.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/hojadevida/attachment"
	"github.com/hazyhaar/hojadevida/cv"
	"github.com/hazyhaar/hojadevida/cvstore"
)

func main() {
	dbPath := flag.String("db", "data/hojadevida.db", "path to SQLite database")
	file := flag.String("file", "", "YAML fixture to load")
	reset := flag.Bool("reset", false, "delete every existing profile first")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: cvseed -db <path> -file <fixture.yaml> [-reset]")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *dbPath, *file, *reset); err != nil {
		logger.Error("cvseed: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, dbPath, file string, reset bool) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	fx, err := parseFixture(data)
	if err != nil {
		return err
	}

	st, err := cvstore.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	if reset {
		n, err := resetProfiles(ctx, st)
		if err != nil {
			return err
		}
		logger.Info("cvseed: profiles deleted", "count", n)
	}
	counts, err := seed(ctx, st, fx)
	if err != nil {
		return err
	}
	logger.Info("cvseed: done", "db", dbPath, "counts", counts)
	return nil
}

// Doc is the attachment of a fixture record.
type Doc struct {
	File string `yaml:"file"`
	Link string `yaml:"link"`
}

func (d Doc) ref() attachment.Ref { return attachment.NewRef(d.File, d.Link) }

type experienceFixture struct {
	cv.WorkExperience `yaml:",inline"`
	Doc               `yaml:",inline"`
}

type courseFixture struct {
	cv.Course `yaml:",inline"`
	Doc       `yaml:",inline"`
}

type recognitionFixture struct {
	cv.Recognition `yaml:",inline"`
	Doc            `yaml:",inline"`
}

type listingFixture struct {
	cv.Listing `yaml:",inline"`
	Doc        `yaml:",inline"`
}

type profileFixture struct {
	cv.Profile `yaml:",inline"`

	Experience   []experienceFixture  `yaml:"experience"`
	Courses      []courseFixture      `yaml:"courses"`
	Recognitions []recognitionFixture `yaml:"recognitions"`
	Academic     []cv.AcademicProduct `yaml:"academic"`
	Labor        []cv.LaborProduct    `yaml:"labor"`
	Marketplace  []listingFixture     `yaml:"marketplace"`
}

type fixture struct {
	Profiles []profileFixture `yaml:"profiles"`
}

func parseFixture(data []byte) (*fixture, error) {
	var fx fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("cvseed: parse fixture: %w", err)
	}
	return &fx, nil
}

// seedStore is the storage cvseed writes to. Implemented by *cvstore.Store.
type seedStore interface {
	cv.Editor
	Profiles(ctx context.Context) ([]cv.Profile, error)
}

func resetProfiles(ctx context.Context, st seedStore) (int, error) {
	list, err := st.Profiles(ctx)
	if err != nil {
		return 0, err
	}
	for _, p := range list {
		if err := st.DeleteProfile(ctx, p.ID); err != nil {
			return 0, err
		}
	}
	return len(list), nil
}

// seed stores every profile of fx with its records and returns the number
// of rows written per kind. Fixture IDs are ignored.
func seed(ctx context.Context, st seedStore, fx *fixture) (map[string]int, error) {
	counts := map[string]int{}
	for _, pf := range fx.Profiles {
		p := pf.Profile
		p.ID = 0
		pid, err := st.SaveProfile(ctx, &p)
		if err != nil {
			return counts, fmt.Errorf("cvseed: profile %q: %w", p.FullName(), err)
		}
		counts["profiles"]++

		fail := func(sec cv.Section, i int, err error) error {
			return fmt.Errorf("cvseed: profile %q: %s #%d: %w", p.FullName(), sec, i+1, err)
		}
		for i, f := range pf.Experience {
			r := f.WorkExperience
			r.ID, r.ProfileID, r.Attachment = 0, pid, f.ref()
			if _, err := st.SaveExperience(ctx, &r); err != nil {
				return counts, fail(cv.SectionExperience, i, err)
			}
		}
		for i, f := range pf.Courses {
			r := f.Course
			r.ID, r.ProfileID, r.Attachment = 0, pid, f.ref()
			if _, err := st.SaveCourse(ctx, &r); err != nil {
				return counts, fail(cv.SectionCourses, i, err)
			}
		}
		for i, f := range pf.Recognitions {
			r := f.Recognition
			r.ID, r.ProfileID, r.Attachment = 0, pid, f.ref()
			if _, err := st.SaveRecognition(ctx, &r); err != nil {
				return counts, fail(cv.SectionRecognitions, i, err)
			}
		}
		for i, r := range pf.Academic {
			r.ID, r.ProfileID = 0, pid
			if _, err := st.SaveAcademic(ctx, &r); err != nil {
				return counts, fail(cv.SectionAcademic, i, err)
			}
		}
		for i, r := range pf.Labor {
			r.ID, r.ProfileID = 0, pid
			if _, err := st.SaveLabor(ctx, &r); err != nil {
				return counts, fail(cv.SectionLabor, i, err)
			}
		}
		for i, f := range pf.Marketplace {
			r := f.Listing
			r.ID, r.ProfileID, r.Attachment = 0, pid, attachment.NewRef(f.File, "")
			if _, err := st.SaveListing(ctx, &r); err != nil {
				return counts, fail(cv.SectionMarketplace, i, err)
			}
		}
		counts[string(cv.SectionExperience)] += len(pf.Experience)
		counts[string(cv.SectionCourses)] += len(pf.Courses)
		counts[string(cv.SectionRecognitions)] += len(pf.Recognitions)
		counts[string(cv.SectionAcademic)] += len(pf.Academic)
		counts[string(cv.SectionLabor)] += len(pf.Labor)
		counts[string(cv.SectionMarketplace)] += len(pf.Marketplace)
	}
	return counts, nil
}
