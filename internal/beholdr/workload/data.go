package workload

// Shared lists for synthetic statement values.

var drugNames = []string{
	"Atorvastatin", "Levothyroxine", "Lisinopril", "Metformin", "Amlodipine",
	"Metoprolol", "Omeprazole", "Simvastatin", "Losartan", "Albuterol",
	"Gabapentin", "Hydrochlorothiazide", "Sertraline", "Furosemide", "Fluticasone",
	"Acetaminophen", "Prednisone", "Tramadol", "Amoxicillin", "Pantoprazole",
	"Citalopram", "Cetirizine", "Trazodone", "Clopidogrel", "Atenolol",
	"Rosuvastatin", "Escitalopram", "Bupropion", "Duloxetine", "Warfarin",
}

var dosageForms = []string{"tablet", "capsule", "injection", "syrup", "ointment"}

var strengths = []string{"100mg", "250mg", "500mg", "10mg/ml", "20mg/ml"}

var manufacturers = []string{"Pfizer", "Roche", "Novartis", "Cipla", "Sun Pharma"}

var diagnoses = []string{
	"Hypertension", "Type 2 Diabetes Mellitus", "Hyperlipidemia", "Asthma",
	"Chronic Obstructive Pulmonary Disease", "Acute Bronchitis", "Pneumonia",
	"Gastroesophageal Reflux Disease", "Chronic Kidney Disease", "Osteoarthritis",
	"Migraine", "Major Depressive Disorder", "Generalized Anxiety Disorder",
	"Crohn's Disease", "Parkinson's Disease", "Alzheimer's Disease", "Influenza",
}

var orderStatuses = []string{"PENDING", "FILLED", "CANCELLED"}
