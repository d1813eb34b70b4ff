package taxonomy

// defaultCodes is the standard residential construction cost-code set used
// when a job does not supply a custom taxonomy.
var defaultCodes = []Code{
	{Code: "01", Name: "General Conditions"},
	{Code: "02", Name: "Site Preparation / Demolition"},
	{Code: "03", Name: "Excavation / Grading / Landscape"},
	{Code: "04", Name: "Concrete & Masonry"},
	{Code: "05", Name: "Rough Carpentry / Framing"},
	{Code: "06", Name: "Doors, Windows, Trim"},
	{Code: "07", Name: "Mechanical (HVAC)"},
	{Code: "08", Name: "Electrical"},
	{Code: "09", Name: "Plumbing"},
	{Code: "10", Name: "Wall & Ceiling Coverings (Drywall, Plaster)"},
	{Code: "11", Name: "Finish Carpentry"},
	{Code: "12", Name: "Cabinets, Vanities, Countertops"},
	{Code: "13", Name: "Flooring / Tile"},
	{Code: "14", Name: "Specialties (Appliances, Fixtures)"},
	{Code: "15", Name: "Decking"},
	{Code: "16", Name: "Fencing"},
	{Code: "17", Name: "Exterior Facade (Siding, Brick, Stone)"},
	{Code: "18", Name: "Soffit, Fascia, Gutters"},
	{Code: "19", Name: "Roofing"},
}

// DemolitionCode is the top-level code whose items render as a checklist in
// the jral document template.
const DemolitionCode = "02"
