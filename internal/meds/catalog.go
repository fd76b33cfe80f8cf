package meds

// DefaultCatalog is written to disk the first time the catalog is read and
// no catalog file exists yet.
func DefaultCatalog() []CatalogEntry {
	return []CatalogEntry{
		{Name: "Paracetamol", Substance: "Paracetamol", DoseMg: Dose(500)},
		{Name: "Ibuprofeno", Substance: "Ibuprofeno", DoseMg: Dose(400)},
		{Name: "Amoxicilina", Substance: "Amoxicilina", DoseMg: Dose(500), RequiresPrescription: true},
		{Name: "Omeprazol", Substance: "Omeprazol", DoseMg: Dose(20)},
		{Name: "Metformina", Substance: "Metformina", DoseMg: Dose(850), RequiresPrescription: true},
		{Name: "Losartán", Substance: "Losartán potásico", DoseMg: Dose(50), RequiresPrescription: true},
		{Name: "Atorvastatina", Substance: "Atorvastatina cálcica", DoseMg: Dose(20), RequiresPrescription: true},
		{Name: "Cetirizina", Substance: "Cetirizina diclorhidrato", DoseMg: Dose(10)},
		{Name: "Salbutamol", Substance: "Salbutamol", DoseMg: Dose(100), RequiresPrescription: true},
		{Name: "Ácido acetilsalicílico", Substance: "Aspirina", DoseMg: Dose(100)},
	}
}
