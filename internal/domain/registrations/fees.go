package registrations

import "github.com/dscnitrourkela/project-zucchini/internal/config"

// Fees are registration fees in whole rupees.
type Fees struct {
	Nitrutsav  int
	MunCollege int
	MunSchool  int
}

func FeesFromConfig(cfg config.FeesConfig) Fees {
	return Fees{
		Nitrutsav:  cfg.Nitrutsav,
		MunCollege: cfg.MunCollege,
		MunSchool:  cfg.MunSchool,
	}
}

// MunFee is the fee for one MUN registration. Team committees pay for every
// seat up front.
func (f Fees) MunFee(studentType StudentType, committee Committee) int {
	base := f.MunSchool
	if studentType == StudentCollege {
		base = f.MunCollege
	}
	return base * committee.TeamSize()
}
