package dialogue

import (
	"strings"
)

// FAQReply is a canned assistant answer with optional quick-reply options.
type FAQReply struct {
	Text    string   `json:"text"`
	Options []string `json:"options,omitempty"`
}

// faqRule maps trigger substrings to one canned reply. Rules are evaluated
// in order; the first rule with a matching trigger wins.
type faqRule struct {
	triggers []string
	reply    FAQReply
}

var faqRules = []faqRule{
	{
		triggers: []string{"hello", "hi", "good morning"},
		reply: FAQReply{
			Text:    "Hello, welcome to our bank. How can I help you today?",
			Options: []string{"Tell me about your bank", "What services do you provide?", "What are your interest rates?"},
		},
	},
	{
		triggers: []string{"about yourself", "about your bank"},
		reply: FAQReply{
			Text:    "I am your AI bank assistant of LoanPro. It is a trusted bank offering loans, credit score check, and 24/7 application for taking loans. We focus on your convenience and fast services.",
			Options: []string{"What services do you provide?", "What are the requirements for a loan?"},
		},
	},
	{
		triggers: []string{"service", "provide"},
		reply: FAQReply{
			Text:    "We provide a range of services including personal loans, home loans, and vehicle loans. We also offer KYC verification and credit score checks to help you manage your finances.",
			Options: []string{"What types of loans are available?", "What are the requirements for a loan?"},
		},
	},
	{
		triggers: []string{"why should i take a loan"},
		reply: FAQReply{
			Text:    "Our bank offers flexible interest rates and low-interest options, quick approval, and transparent processes with no hidden charges. We prioritize your convenience and aim to provide a hassle-free experience.",
			Options: []string{"What are your interest rates?", "What are the requirements for a loan?"},
		},
	},
	{
		triggers: []string{"loan type", "loans are available"},
		reply: FAQReply{
			Text:    "We offer a variety of loans to suit your needs, including Personal Loans, Home Loans, and Vehicle Loans. Which one are you interested in?",
			Options: []string{"Personal Loan", "Home Loan", "Vehicle Loan"},
		},
	},
	{
		triggers: []string{"personal loan"},
		reply: FAQReply{
			Text:    "A personal loan is a great option for various needs like weddings, vacations, or medical emergencies. Our personal loans have competitive interest rates and flexible repayment options. Would you like to know more?",
			Options: []string{"What are the interest rates?", "How do I apply?"},
		},
	},
	{
		triggers: []string{"home loan"},
		reply: FAQReply{
			Text:    "Our home loans can help you buy your dream house. We offer attractive interest rates and long tenure options. Would you like to check your eligibility?",
			Options: []string{"Check my eligibility", "What are the interest rates?"},
		},
	},
	{
		triggers: []string{"vehicle loan"},
		reply: FAQReply{
			Text:    "With our vehicle loans, you can buy your new car or two-wheeler with ease. We offer quick processing and up to 100% financing on select vehicles. Would you like to apply?",
			Options: []string{"Apply for a vehicle loan", "What are the interest rates?"},
		},
	},
	{
		triggers: []string{"rate", "interest"},
		reply: FAQReply{
			Text:    "We are very flexible with interest rates. You decide, and we will give you our best options.",
			Options: []string{"Apply for a loan"},
		},
	},
	{
		triggers: []string{"requirement"},
		reply: FAQReply{
			Text:    "To apply for a loan, you need to be a resident of the country, have a steady source of income, and a good credit score. You will also need to complete your KYC verification on our platform.",
			Options: []string{"How to complete KYC?", "Apply for a loan"},
		},
	},
	{
		triggers: []string{"apply"},
		reply: FAQReply{
			Text:    "You can apply for a loan directly from your dashboard. Just click on the 'Apply for Loan' button. You need to have your KYC completed before applying.",
			Options: []string{"How to complete KYC?", "Go to Dashboard"},
		},
	},
	{
		triggers: []string{"kyc"},
		reply: FAQReply{
			Text:    "You can complete your KYC from your profile page. You will need to provide your PAN and Aadhaar details.",
			Options: []string{"Go to Profile", "What is KYC?"},
		},
	},
	{
		triggers: []string{"bye", "thank you"},
		reply: FAQReply{
			Text: "You are welcome! Feel free to ask if you have any more questions. Goodbye!",
		},
	},
}

var faqFallback = FAQReply{
	Text:    "I'm sorry, I didn't quite understand that. Could you please rephrase? You can ask me about our services, loan types, or interest rates.",
	Options: []string{"Tell me about your bank", "What services do you provide?", "Why should I take a loan from you?"},
}

// Answer returns the canned support-assistant reply for a free-text
// question. Matching is case-insensitive substring search over an ordered
// rule list, falling back to an apology with the default options.
func Answer(message string) FAQReply {
	lower := strings.ToLower(message)

	for _, rule := range faqRules {
		for _, trigger := range rule.triggers {
			if strings.Contains(lower, trigger) {
				return rule.reply
			}
		}
	}
	return faqFallback
}
