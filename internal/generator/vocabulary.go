package generator

// Construction vocabulary drawn on by the generator. Equipment names are in
// their human form; models.ParseEquipment normalises them.
var (
	constructionRoles = []string{
		"Architect",
		"Construction Expeditor",
		"Construction Foreman",
		"Construction Manager",
		"Construction Worker",
		"Electrician",
		"Engineer",
		"Estimator",
		"Inspector",
		"Laborer",
		"Project Manager",
		"Subcontractor",
		"Supervisor",
		"Surveyor",
	}

	constructionMaterials = []string{
		"Aluminum",
		"Brass",
		"Concrete",
		"Glass",
		"Granite",
		"Plastic",
		"Plexiglass",
		"Rubber",
		"Steel",
		"Stone",
		"Vinyl",
		"Wood",
	}

	heavyEquipment = []string{
		"Backhoe",
		"Bulldozer",
		"Compactor",
		"Crawler",
		"Dragline",
		"Dump Truck",
		"Excavator",
		"Feller Buncher",
		"Grader",
		"Loader",
		"Paver",
		"Scraper",
		"Skid-Steer",
		"Telehandler",
		"Tower Crane",
		"Trencher",
	}
)
