package units

import "testing"

func TestLengthUnits(t *testing.T) {
	if Centimeter != 10*Millimeter {
		t.Errorf("expected 1 cm = 10 mm, got %f", Centimeter)
	}
	if Meter != 100*Centimeter {
		t.Errorf("expected 1 m = 100 cm, got %f", Meter)
	}
}

func TestEnergyUnits(t *testing.T) {
	if MeV != 1000*KeV {
		t.Errorf("expected 1 MeV = 1000 keV, got %f", MeV)
	}
	if GeV != 1000*MeV {
		t.Errorf("expected 1 GeV = 1000 MeV, got %f", GeV)
	}
}
