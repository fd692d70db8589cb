// Package vocab holds the closed vocabularies the archive enforces on
// sample and read metadata. The lists mirror the permitted values of the
// ENA sample checklists and the SRA experiment schema; preflight rejects
// any field whose value is not in the matching list.
package vocab

import "strings"

// LibrarySources are the permitted values for the library source field.
var LibrarySources = []string{
	"GENOMIC",
	"GENOMIC SINGLE CELL",
	"TRANSCRIPTOMIC",
	"TRANSCRIPTOMIC SINGLE CELL",
	"METAGENOMIC",
	"METATRANSCRIPTOMIC",
	"SYNTHETIC",
	"VIRAL RNA",
	"OTHER",
}

// LibrarySelections are the permitted values for the library selection field.
var LibrarySelections = []string{
	"RANDOM",
	"PCR",
	"RANDOM PCR",
	"RT-PCR",
	"HMPR",
	"MF",
	"repeat fractionation",
	"size fractionation",
	"MSLL",
	"cDNA",
	"cDNA_randomPriming",
	"cDNA_oligo_dT",
	"PolyA",
	"Oligo-dT",
	"Inverse rRNA",
	"Inverse rRNA selection",
	"ChIP",
	"ChIP-Seq",
	"MNase",
	"DNase",
	"Hybrid Selection",
	"Reduced Representation",
	"Restriction Digest",
	"5-methylcytidine antibody",
	"MBD2 protein methyl-CpG binding domain",
	"CAGE",
	"RACE",
	"MDA",
	"padlock probes capture method",
	"other",
	"unspecified",
}

// LibraryStrategies are the permitted values for the library strategy field.
var LibraryStrategies = []string{
	"WGS",
	"WGA",
	"WXS",
	"RNA-Seq",
	"ssRNA-seq",
	"miRNA-Seq",
	"ncRNA-Seq",
	"FL-cDNA",
	"EST",
	"Hi-C",
	"ATAC-seq",
	"WCS",
	"RAD-Seq",
	"CLONE",
	"POOLCLONE",
	"AMPLICON",
	"CLONEEND",
	"FINISHING",
	"ChIP-Seq",
	"MNase-Seq",
	"DNase-Hypersensitivity",
	"Bisulfite-Seq",
	"CTS",
	"MRE-Seq",
	"MeDIP-Seq",
	"MBD-Seq",
	"Tn-Seq",
	"VALIDATION",
	"FAIRE-seq",
	"SELEX",
	"RIP-Seq",
	"ChIA-PET",
	"Synthetic-Long-Read",
	"Targeted-Capture",
	"Tethered Chromatin Conformation Capture",
	"OTHER",
}

// Instruments are the permitted sequencing instrument models.
var Instruments = []string{
	"454 GS",
	"454 GS 20",
	"454 GS FLX",
	"454 GS FLX Titanium",
	"454 GS FLX+",
	"454 GS Junior",
	"AB 310 Genetic Analyzer",
	"AB 3130 Genetic Analyzer",
	"AB 3130xL Genetic Analyzer",
	"AB 3500 Genetic Analyzer",
	"AB 3500xL Genetic Analyzer",
	"AB 3730 Genetic Analyzer",
	"AB 3730xL Genetic Analyzer",
	"AB 5500 Genetic Analyzer",
	"AB 5500xl Genetic Analyzer",
	"AB 5500xl-W Genetic Analysis System",
	"BGISEQ-50",
	"BGISEQ-500",
	"DNBSEQ-G400",
	"DNBSEQ-G400 FAST",
	"DNBSEQ-G50",
	"DNBSEQ-T7",
	"Element AVITI",
	"GridION",
	"Helicos HeliScope",
	"HiSeq X Five",
	"HiSeq X Ten",
	"Illumina Genome Analyzer",
	"Illumina Genome Analyzer II",
	"Illumina Genome Analyzer IIx",
	"Illumina HiScanSQ",
	"Illumina HiSeq 1000",
	"Illumina HiSeq 1500",
	"Illumina HiSeq 2000",
	"Illumina HiSeq 2500",
	"Illumina HiSeq 3000",
	"Illumina HiSeq 4000",
	"Illumina HiSeq X",
	"Illumina MiSeq",
	"Illumina MiniSeq",
	"Illumina NovaSeq 6000",
	"Illumina NovaSeq X",
	"Illumina iSeq 100",
	"Ion GeneStudio S5",
	"Ion GeneStudio S5 Plus",
	"Ion GeneStudio S5 Prime",
	"Ion Torrent Genexus",
	"Ion Torrent PGM",
	"Ion Torrent Proton",
	"Ion Torrent S5",
	"Ion Torrent S5 XL",
	"MGISEQ-2000RS",
	"MinION",
	"NextSeq 500",
	"NextSeq 550",
	"NextSeq 1000",
	"NextSeq 2000",
	"Onso",
	"PacBio RS",
	"PacBio RS II",
	"PromethION",
	"Revio",
	"Sequel",
	"Sequel II",
	"Sequel IIe",
	"UG 100",
	"unspecified",
}

// GeographicLocations are the permitted values for the geographic location
// (country and/or sea) field, per the INSDC country list.
var GeographicLocations = []string{
	"Afghanistan", "Albania", "Algeria", "American Samoa", "Andorra", "Angola",
	"Anguilla", "Antarctica", "Antigua and Barbuda", "Arctic Ocean",
	"Argentina", "Armenia", "Aruba", "Ashmore and Cartier Islands",
	"Atlantic Ocean", "Australia", "Austria", "Azerbaijan", "Bahamas",
	"Bahrain", "Baker Island", "Baltic Sea", "Bangladesh", "Barbados",
	"Bassas da India", "Belarus", "Belgium", "Belize", "Benin", "Bermuda",
	"Bhutan", "Bolivia", "Borneo", "Bosnia and Herzegovina", "Botswana",
	"Bouvet Island", "Brazil", "British Virgin Islands", "Brunei", "Bulgaria",
	"Burkina Faso", "Burundi", "Cambodia", "Cameroon", "Canada", "Cape Verde",
	"Cayman Islands", "Central African Republic", "Chad", "Chile", "China",
	"Christmas Island", "Clipperton Island", "Cocos Islands", "Colombia",
	"Comoros", "Cook Islands", "Coral Sea Islands", "Costa Rica",
	"Cote d'Ivoire", "Croatia", "Cuba", "Curacao", "Cyprus", "Czech Republic",
	"Democratic Republic of the Congo", "Denmark", "Djibouti", "Dominica",
	"Dominican Republic", "East Timor", "Ecuador", "Egypt", "El Salvador",
	"Equatorial Guinea", "Eritrea", "Estonia", "Ethiopia", "Europa Island",
	"Falkland Islands (Islas Malvinas)", "Faroe Islands", "Fiji", "Finland",
	"France", "French Guiana", "French Polynesia",
	"French Southern and Antarctic Lands", "Gabon", "Gambia", "Gaza Strip",
	"Georgia", "Germany", "Ghana", "Gibraltar", "Glorioso Islands", "Greece",
	"Greenland", "Grenada", "Guadeloupe", "Guam", "Guatemala", "Guernsey",
	"Guinea", "Guinea-Bissau", "Guyana", "Haiti",
	"Heard Island and McDonald Islands", "Honduras", "Hong Kong",
	"Howland Island", "Hungary", "Iceland", "India", "Indian Ocean",
	"Indonesia", "Iran", "Iraq", "Ireland", "Isle of Man", "Israel", "Italy",
	"Jamaica", "Jan Mayen", "Japan", "Jarvis Island", "Jersey",
	"Johnston Atoll", "Jordan", "Juan de Nova Island", "Kazakhstan", "Kenya",
	"Kerguelen Archipelago", "Kingman Reef", "Kiribati", "Kosovo", "Kuwait",
	"Kyrgyzstan", "Laos", "Latvia", "Lebanon", "Lesotho", "Liberia", "Libya",
	"Liechtenstein", "Lithuania", "Luxembourg", "Macau", "Macedonia",
	"Madagascar", "Malawi", "Malaysia", "Maldives", "Mali", "Malta",
	"Marshall Islands", "Martinique", "Mauritania", "Mauritius", "Mayotte",
	"Mediterranean Sea", "Mexico", "Micronesia", "Midway Islands", "Moldova",
	"Monaco", "Mongolia", "Montenegro", "Montserrat", "Morocco", "Mozambique",
	"Myanmar", "Namibia", "Nauru", "Navassa Island", "Nepal", "Netherlands",
	"New Caledonia", "New Zealand", "Nicaragua", "Niger", "Nigeria", "Niue",
	"Norfolk Island", "North Korea", "North Sea", "Northern Mariana Islands",
	"Norway", "Oman", "Pacific Ocean", "Pakistan", "Palau", "Palmyra Atoll",
	"Panama", "Papua New Guinea", "Paracel Islands", "Paraguay", "Peru",
	"Philippines", "Pitcairn Islands", "Poland", "Portugal", "Puerto Rico",
	"Qatar", "Republic of the Congo", "Reunion", "Romania", "Ross Sea",
	"Russia", "Rwanda", "Saint Helena", "Saint Kitts and Nevis",
	"Saint Lucia", "Saint Pierre and Miquelon",
	"Saint Vincent and the Grenadines", "Samoa", "San Marino",
	"Sao Tome and Principe", "Saudi Arabia", "Senegal", "Serbia",
	"Seychelles", "Sierra Leone", "Singapore", "Sint Maarten", "Slovakia",
	"Slovenia", "Solomon Islands", "Somalia", "South Africa",
	"South Georgia and the South Sandwich Islands", "South Korea",
	"Southern Ocean", "Spain", "Spratly Islands", "Sri Lanka", "Sudan",
	"Suriname", "Svalbard", "Swaziland", "Sweden", "Switzerland", "Syria",
	"Taiwan", "Tajikistan", "Tanzania", "Tasman Sea", "Thailand", "Togo",
	"Tokelau", "Tonga", "Trinidad and Tobago", "Tromelin Island", "Tunisia",
	"Turkey", "Turkmenistan", "Turks and Caicos Islands", "Tuvalu", "Uganda",
	"Ukraine", "United Arab Emirates", "United Kingdom", "Uruguay", "USA",
	"Uzbekistan", "Vanuatu", "Venezuela", "Viet Nam", "Virgin Islands",
	"Wake Island", "Wallis and Futuna", "West Bank", "Western Sahara",
	"Yemen", "Zambia", "Zimbabwe",
	"missing", "not applicable", "not collected", "not provided",
	"restricted access",
}

// MAGQualityCategories are the permitted MAG quality categories.
var MAGQualityCategories = []string{"finished", "high", "medium"}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// IsLibrarySource reports whether v is a permitted library source.
func IsLibrarySource(v string) bool { return contains(LibrarySources, v) }

// IsLibrarySelection reports whether v is a permitted library selection.
func IsLibrarySelection(v string) bool { return contains(LibrarySelections, v) }

// IsLibraryStrategy reports whether v is a permitted library strategy.
func IsLibraryStrategy(v string) bool { return contains(LibraryStrategies, v) }

// IsInstrument reports whether v is a permitted instrument model.
func IsInstrument(v string) bool { return contains(Instruments, v) }

// IsGeographicLocation reports whether v is a permitted geographic location.
func IsGeographicLocation(v string) bool { return contains(GeographicLocations, v) }

// IsMAGQualityCategory reports whether v is a permitted MAG quality category.
// The comparison is case-insensitive because the metadata sheet is
// hand-authored.
func IsMAGQualityCategory(v string) bool {
	return contains(MAGQualityCategories, strings.ToLower(v))
}
