package freight

import (
	"fmt"
	"strings"

	"github.com/VCGI/VT-DataRail-Tools/internal/gdb"
	"github.com/VCGI/VT-DataRail-Tools/internal/protocol"
)

// Notebook receives run notes. *journal.Journal implements it.
type Notebook interface {
	Note(msg string)
	Report(msg string)
}

// BuildTrain lines up the freight cars. With directives, only the objects they name
// travel; without, every source feature class, table and raster does, in that order.
func BuildTrain(src, tgt *Inventory, directives []protocol.Parameter, nb Notebook) []Car {
	if len(directives) == 0 {
		return allObjects(src, tgt)
	}

	var cars []Car
	for _, p := range directives {
		if p.Static() {
			continue
		}
		if p.IsFeatureDataset {
			ds, ok := src.DatasetByFullName(p.ObjectName)
			if !ok {
				nb.Report(fmt.Sprintf("A_XCHANGE_PARAMETERS table has a directive for a feature dataset named %s. However source geodatabase doesn't have a feature dataset by that name. Skipping it.", p.ObjectName))
				continue
			}
			for _, c := range src.Members(ds) {
				cars = append(cars, newCar(tgt, c.Name, gdb.BaseName(ds), gdb.TypeFeatureClass, p))
			}
			continue
		}

		if c, ok := src.ClassByFullName(p.ObjectName); ok {
			cars = append(cars, newCar(tgt, c.Name, datasetBase(c), gdb.TypeFeatureClass, p))
		} else if i := gdb.IndexFold(src.Tables, p.ObjectName); i != -1 {
			cars = append(cars, newCar(tgt, src.Tables[i], "", gdb.TypeTable, p))
		} else if i := gdb.IndexFold(src.Rasters, p.ObjectName); i != -1 {
			cars = append(cars, newCar(tgt, src.Rasters[i], "", gdb.TypeRaster, p))
		} else {
			nb.Report(fmt.Sprintf("A_XCHANGE_PARAMETERS table has a directive for a data object named %s. However source geodatabase doesn't have a data object by that name. Skipping it.", p.ObjectName))
		}
	}
	return cars
}

func allObjects(src, tgt *Inventory) []Car {
	var cars []Car
	for _, c := range src.Classes {
		cars = append(cars, newCar(tgt, c.Name, datasetBase(c), gdb.TypeFeatureClass, protocol.Parameter{}))
	}
	for _, t := range src.Tables {
		cars = append(cars, newCar(tgt, t, "", gdb.TypeTable, protocol.Parameter{}))
	}
	for _, r := range src.Rasters {
		cars = append(cars, newCar(tgt, r, "", gdb.TypeRaster, protocol.Parameter{}))
	}
	return cars
}

func newCar(tgt *Inventory, full, dataset string, t gdb.ObjectType, p protocol.Parameter) Car {
	car := Car{
		SourcePrefix: gdb.SchemaPrefix(full),
		Dataset:      dataset,
		Name:         gdb.BaseName(full),
		Type:         t,
	}
	if p.DetectChanges() && t != gdb.TypeRaster {
		car.DetectChanges = true
		car.SortField = strings.TrimSpace(p.SortField)
	}
	if existing, ok := tgt.Lookup(t, car.Name); ok {
		car.AlreadyThere = true
		car.TargetPrefix = gdb.SchemaPrefix(existing)
	}
	return car
}

func datasetBase(c Class) string {
	if c.Dataset == "" {
		return ""
	}
	return gdb.BaseName(c.Dataset)
}
