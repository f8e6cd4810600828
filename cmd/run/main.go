// Command run trains variational circuits over a (κ, h) grid of ANNNI
// Hamiltonians and reports the reached energies against exact
// diagonalization.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"

	"github.com/SaverioMonaco/qphase"
	"github.com/SaverioMonaco/qphase/store"
	"github.com/SaverioMonaco/qphase/vqe"
)

const (
	fnameEnergies = "energies.csv"
	fnameDB       = "vqe.db"
)

var (
	runDir      = flag.String("d", filepath.Join("runs", "qphase"), "run directory")
	numSpins    = flag.Int("n", 6, "number of spins")
	numKappas   = flag.Int("nk", 8, "number of κ grid points")
	numHs       = flag.Int("nh", 8, "number of h grid points")
	kappaMax    = flag.Float64("kmax", 1, "largest κ")
	hMax        = flag.Float64("hmax", 2, "largest h")
	circuitName = flag.String("circuit", "annni", "variational circuit")
	lr          = flag.Float64("lr", 1e-2, "learning rate")
	epochs      = flag.Int("epochs", 1000, "training epochs")
	reg         = flag.Float64("reg", 0, "neighbour fidelity regularization")
	recycle     = flag.Bool("recycle", false, "traverse grid points one by one")
)

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	if err := mainWithErr(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func mainWithErr() error {
	if err := os.MkdirAll(*runDir, os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}

	grid, err := qphase.NewGrid(*numSpins, *numKappas, *numHs, *kappaMax, *hMax)
	if err != nil {
		return errors.Wrap(err, "")
	}
	v, err := vqe.New(grid, *circuitName)
	if err != nil {
		return errors.Wrap(err, "")
	}

	opt := vqe.NewTrainOptions().LR(*lr).Epochs(*epochs).Reg(*reg).Recycle(*recycle)
	if err := v.Train(opt); err != nil {
		return errors.Wrap(err, "")
	}

	dbPath := filepath.Join(*runDir, fnameDB)
	if err := store.Save(dbPath, v); err != nil {
		return errors.Wrap(err, dbPath)
	}
	if err := writeEnergies(filepath.Join(*runDir, fnameEnergies), v); err != nil {
		return errors.Wrap(err, "")
	}

	fmt.Printf("kappa,h,true_e,vqe_e,fidelity\n")
	for i := range grid.NStates() {
		kappa, h := grid.Point(i)
		fid := vqe.Fidelity(grid.TruePsi[i], v.State.States[i])
		fmt.Printf("%f,%f,%f,%f,%f\n", kappa, h, grid.TrueE[i], v.State.Energies[i], fid)
	}
	return nil
}

func writeEnergies(fpath string, v *vqe.VQE) error {
	f, err := os.Create(fpath)
	if err != nil {
		return errors.Wrap(err, "")
	}
	w := csv.NewWriter(f)

	if err1 := w.Write([]string{"kappa", "h", "true_e", "vqe_e", "fidelity"}); err1 != nil && err == nil {
		err = errors.Wrap(err1, "")
	}
	record := make([]string, 5)
	for i := range v.Grid.NStates() {
		kappa, h := v.Grid.Point(i)
		record[0] = strconv.FormatFloat(kappa, 'f', -1, 64)
		record[1] = strconv.FormatFloat(h, 'f', -1, 64)
		record[2] = strconv.FormatFloat(v.Grid.TrueE[i], 'f', -1, 64)
		record[3] = strconv.FormatFloat(v.State.Energies[i], 'f', -1, 64)
		record[4] = strconv.FormatFloat(vqe.Fidelity(v.Grid.TruePsi[i], v.State.States[i]), 'f', -1, 64)
		if err1 := w.Write(record); err1 != nil && err == nil {
			err = errors.Wrap(err1, "")
			break
		}
	}

	w.Flush()
	if err1 := w.Error(); err1 != nil && err == nil {
		err = errors.Wrap(err1, "")
	}
	if err1 := f.Close(); err1 != nil && err == nil {
		err = errors.Wrap(err1, "")
	}
	return err
}
