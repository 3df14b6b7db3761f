package refdata

import "time"

// defaultProfiles is the built-in Krishna District catalog. Yields come from
// district agricultural statistics (quintals per acre), prices from Vijayawada
// mandi baselines (rupees per quintal). Peak and low months reflect the
// historical price cycle, not the growing season: low months usually coincide
// with harvest gluts.
var defaultProfiles = []CropProfile{
	{
		Name:             "paddy",
		BaseYieldPerAcre: 25, MinYieldPerAcre: 15, MaxYieldPerAcre: 35,
		OptimalTempC:    Range{25, 35},
		OptimalRainfall: Range{1200, 2000},
		OptimalHumidity: Range{70, 85},
		AvgPrice:        2200, MinPrice: 1800, MaxPrice: 2800,
		PeakMonths: []time.Month{time.November, time.December, time.January},
		LowMonths:  []time.Month{time.May, time.June, time.July},
	},
	{
		Name:             "mango",
		BaseYieldPerAcre: 30, MinYieldPerAcre: 20, MaxYieldPerAcre: 50,
		OptimalTempC:    Range{24, 30},
		OptimalRainfall: Range{750, 2500},
		OptimalHumidity: Range{60, 75},
		AvgPrice:        3200, MinPrice: 2000, MaxPrice: 5000,
		PeakMonths: []time.Month{time.March, time.April},
		LowMonths:  []time.Month{time.May, time.June},
	},
	{
		Name:             "chillies",
		BaseYieldPerAcre: 12, MinYieldPerAcre: 7, MaxYieldPerAcre: 18,
		OptimalTempC:    Range{20, 30},
		OptimalRainfall: Range{600, 1250},
		OptimalHumidity: Range{60, 70},
		AvgPrice:        9000, MinPrice: 6000, MaxPrice: 15000,
		PeakMonths: []time.Month{time.January, time.December},
		LowMonths:  []time.Month{time.March, time.April},
	},
	{
		Name:             "cotton",
		BaseYieldPerAcre: 8, MinYieldPerAcre: 5, MaxYieldPerAcre: 12,
		OptimalTempC:    Range{21, 30},
		OptimalRainfall: Range{500, 1000},
		OptimalHumidity: Range{50, 70},
		AvgPrice:        7200, MinPrice: 5500, MaxPrice: 9500,
		PeakMonths: []time.Month{time.September, time.October},
		LowMonths:  []time.Month{time.December, time.January, time.February},
	},
	{
		Name:             "turmeric",
		BaseYieldPerAcre: 20, MinYieldPerAcre: 12, MaxYieldPerAcre: 30,
		OptimalTempC:    Range{20, 30},
		OptimalRainfall: Range{1500, 2250},
		OptimalHumidity: Range{70, 80},
		AvgPrice:        9500, MinPrice: 7000, MaxPrice: 13000,
		PeakMonths: []time.Month{time.December, time.January},
		LowMonths:  []time.Month{time.March, time.April},
	},
	{
		Name:             "sugarcane",
		BaseYieldPerAcre: 250, MinYieldPerAcre: 180, MaxYieldPerAcre: 350,
		OptimalTempC:    Range{21, 27},
		OptimalRainfall: Range{1500, 2500},
		OptimalHumidity: Range{70, 80},
		AvgPrice:        350, MinPrice: 280, MaxPrice: 450,
		PeakMonths: []time.Month{time.November, time.December},
		LowMonths:  []time.Month{time.February, time.March},
	},
	{
		Name:             "banana",
		BaseYieldPerAcre: 150, MinYieldPerAcre: 100, MaxYieldPerAcre: 200,
		OptimalTempC:    Range{15, 35},
		OptimalRainfall: Range{1800, 2700},
		OptimalHumidity: Range{75, 85},
		AvgPrice:        1800, MinPrice: 1200, MaxPrice: 2800,
		PeakMonths: []time.Month{time.November, time.December, time.January, time.February},
		LowMonths:  []time.Month{time.May, time.June, time.July},
	},
	{
		Name:             "tomato",
		BaseYieldPerAcre: 100, MinYieldPerAcre: 60, MaxYieldPerAcre: 150,
		OptimalTempC:    Range{18, 27},
		OptimalRainfall: Range{600, 1300},
		OptimalHumidity: Range{60, 70},
		AvgPrice:        1400, MinPrice: 600, MaxPrice: 3500,
		PeakMonths: []time.Month{time.April, time.May, time.June},
		LowMonths:  []time.Month{time.November, time.December, time.January},
	},
	{
		Name:             "okra",
		BaseYieldPerAcre: 40, MinYieldPerAcre: 25, MaxYieldPerAcre: 60,
		OptimalTempC:    Range{25, 35},
		OptimalRainfall: Range{600, 1000},
		OptimalHumidity: Range{60, 70},
		AvgPrice:        2200, MinPrice: 1200, MaxPrice: 4000,
		PeakMonths: []time.Month{time.March, time.April, time.November},
		LowMonths:  []time.Month{time.January, time.February, time.June, time.July},
	},
	{
		Name:             "brinjal",
		BaseYieldPerAcre: 80, MinYieldPerAcre: 50, MaxYieldPerAcre: 120,
		OptimalTempC:    Range{22, 30},
		OptimalRainfall: Range{600, 1000},
		OptimalHumidity: Range{65, 75},
		AvgPrice:        2000, MinPrice: 1000, MaxPrice: 3500,
		PeakMonths: []time.Month{time.April, time.May},
		LowMonths:  []time.Month{time.December, time.January},
	},
	{
		Name:             "maize",
		BaseYieldPerAcre: 15, MinYieldPerAcre: 10, MaxYieldPerAcre: 25,
		OptimalTempC:    Range{21, 27},
		OptimalRainfall: Range{600, 1200},
		OptimalHumidity: Range{60, 70},
		AvgPrice:        2100, MinPrice: 1700, MaxPrice: 2800,
		PeakMonths: []time.Month{time.January, time.August},
		LowMonths:  []time.Month{time.March, time.April, time.October, time.November},
	},
	{
		Name:             "groundnut",
		BaseYieldPerAcre: 10, MinYieldPerAcre: 6, MaxYieldPerAcre: 15,
		OptimalTempC:    Range{25, 30},
		OptimalRainfall: Range{500, 1250},
		OptimalHumidity: Range{50, 70},
		AvgPrice:        6200, MinPrice: 4800, MaxPrice: 8500,
		PeakMonths: []time.Month{time.July, time.August},
		LowMonths:  []time.Month{time.October, time.November},
	},
}

// defaultFallback is the profile applied to crops the catalog does not know.
var defaultFallback = CropProfile{
	Name:             "default",
	BaseYieldPerAcre: 15, MinYieldPerAcre: 10, MaxYieldPerAcre: 25,
	OptimalTempC:    Range{20, 30},
	OptimalRainfall: Range{500, 1500},
	OptimalHumidity: Range{60, 75},
	AvgPrice:        2500, MinPrice: 2000, MaxPrice: 3500,
	PeakMonths: []time.Month{time.January},
	LowMonths:  []time.Month{time.June},
}
