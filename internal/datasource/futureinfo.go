package datasource

import "kbars/internal/domain"

// futureCommission is the speculation-grade commission schedule per futures
// product, keyed by underlying symbol. Money-charged products quote ratios
// of traded notional; volume-charged products quote yuan per lot.
var futureCommission = map[string]domain.CommissionInfo{
	// CFFEX
	"IF": byMoney(0.000023, 0.000023, 0.000345),
	"IH": byMoney(0.000023, 0.000023, 0.000345),
	"IC": byMoney(0.000023, 0.000023, 0.000345),
	"T":  byVolume(3, 3, 0),
	"TF": byVolume(3, 3, 0),

	// SHFE
	"CU": byMoney(0.00005, 0.00005, 0),
	"AL": byVolume(3, 3, 0),
	"ZN": byVolume(3, 3, 0),
	"PB": byMoney(0.00004, 0.00004, 0),
	"NI": byVolume(6, 6, 6),
	"SN": byVolume(3, 3, 0),
	"AU": byVolume(10, 10, 0),
	"AG": byMoney(0.00005, 0.00005, 0.00005),
	"RB": byMoney(0.000045, 0.000045, 0.000045),
	"HC": byMoney(0.00004, 0.00004, 0.00004),
	"BU": byMoney(0.00003, 0.00003, 0.00003),
	"RU": byMoney(0.000045, 0.000045, 0.000045),

	// DCE
	"A":  byVolume(2, 2, 2),
	"B":  byVolume(1, 1, 1),
	"M":  byVolume(1.5, 1.5, 0.75),
	"Y":  byVolume(2.5, 2.5, 1.25),
	"C":  byVolume(1.2, 1.2, 0.6),
	"CS": byVolume(1.5, 1.5, 0.75),
	"I":  byMoney(0.00006, 0.00006, 0.00006),
	"J":  byMoney(0.00006, 0.00006, 0.00006),
	"JM": byMoney(0.00006, 0.00006, 0.00006),
	"JD": byMoney(0.00015, 0.00015, 0.00015),
	"L":  byVolume(2, 2, 2),
	"PP": byMoney(0.00006, 0.00006, 0.00003),
	"V":  byVolume(2, 2, 2),

	// CZCE
	"SR": byVolume(3, 3, 0),
	"CF": byVolume(4.3, 4.3, 0),
	"TA": byVolume(3, 3, 0),
	"MA": byVolume(2, 2, 6),
	"FG": byVolume(3, 3, 6),
	"RM": byVolume(1.5, 1.5, 0),
	"OI": byVolume(2.5, 2.5, 0),
	"ZC": byVolume(4, 4, 4),
	"WH": byVolume(2.5, 2.5, 0),
}

func byMoney(open, close, closeToday float64) domain.CommissionInfo {
	return domain.CommissionInfo{
		CommissionType:            domain.CommissionByMoney,
		OpenCommissionRatio:       open,
		CloseCommissionRatio:      close,
		CloseCommissionTodayRatio: closeToday,
	}
}

func byVolume(open, close, closeToday float64) domain.CommissionInfo {
	return domain.CommissionInfo{
		CommissionType:            domain.CommissionByVolume,
		OpenCommissionRatio:       open,
		CloseCommissionRatio:      close,
		CloseCommissionTodayRatio: closeToday,
	}
}
